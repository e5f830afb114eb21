// Package session implements the IPMI session layer: the no-session
// (cleartext) path, IPMI 1.5 sessions with legacy per-message
// authentication, and RMCP+ (IPMI 2.0) sessions with RAKP key exchange,
// AES-CBC-128 confidentiality, and HMAC-SHA1-96 integrity.
//
// The package is sans-I/O: it produces and consumes the session portion of
// RMCP packets (everything after the 4-byte RMCP header). Transports own
// sockets; the client drives handshakes by shuttling the byte slices this
// package emits.
//
// The cryptographic primitives follow the published algorithms, but the
// overall construction (IV sourcing, compare semantics, key lifetime) has
// not been independently security-vetted. Keys are zeroed on Close; RAKP
// and integrity check values are compared in constant time.
package session

import (
	"errors"
	"fmt"
)

// Errors surfaced by session packet processing. All are fatal to the
// packet but recoverable for the session.
var (
	ErrIntegrityMismatch  = errors.New("session: integrity check failed")
	ErrBadPadding         = errors.New("session: bad confidentiality padding")
	ErrSequenceRejected   = errors.New("session: sequence outside replay window")
	ErrWrongSessionID     = errors.New("session: unexpected session id")
	ErrAuthFailed         = errors.New("session: authentication failed")
	ErrUnsupportedSuite   = errors.New("session: unsupported cipher suite")
	ErrNotActive          = errors.New("session: not active")
	ErrPayloadTooLong     = errors.New("session: payload too long")
)

// State tracks the session lifecycle.
type State uint8

const (
	StateNone State = iota
	StateActivating
	StateActive
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Wrapper attaches and strips the session envelope around IPMI payloads.
// Wrap returns the session header plus protected payload, ready to follow
// an RMCP header. Unwrap authenticates, decrypts, and de-frames an inbound
// packet body, returning the bare IPMI payload.
type Wrapper interface {
	Wrap(payload []byte) ([]byte, error)
	Unwrap(packet []byte) ([]byte, error)
	// ID returns the active session id, zero outside a session.
	ID() uint32
}

// None is the sessionless wrapper: auth type zero, session id and
// sequence zero.
type None struct{}

// Wrap frames payload with a zeroed IPMI 1.5 session header.
func (None) Wrap(payload []byte) ([]byte, error) {
	return encodeV15(AuthNone, 0, 0, nil, payload)
}

// Unwrap strips the zeroed session header.
func (None) Unwrap(packet []byte) ([]byte, error) {
	msg, err := decodeV15(packet, nil)
	if err != nil {
		return nil, err
	}
	return msg.Payload, nil
}

func (None) ID() uint32 { return 0 }
