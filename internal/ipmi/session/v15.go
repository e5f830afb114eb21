package session

// IPMI 1.5 sessions: cleartext payloads with an optional 16-byte
// per-message authentication code.

import (
	"crypto/md5"
	"crypto/subtle"

	"github.com/tturner/ipmiq/internal/ipmi/codec"
)

// AuthType is the legacy session authentication algorithm.
type AuthType uint8

const (
	AuthNone     AuthType = 0x0
	AuthMD2      AuthType = 0x1
	AuthMD5      AuthType = 0x2
	AuthPassword AuthType = 0x4
)

// Password16 pads a password to the fixed 16-byte field.
func Password16(password []byte) ([16]byte, error) {
	var out [16]byte
	if len(password) > 16 {
		return out, ErrAuthFailed
	}
	copy(out[:], password)
	return out, nil
}

// authCode computes the per-message authentication code:
// hash(password ‖ session id ‖ payload ‖ sequence ‖ password).
func authCode(ty AuthType, password [16]byte, sessionID, seq uint32, payload []byte) [16]byte {
	switch ty {
	case AuthPassword:
		return password
	case AuthMD2, AuthMD5:
		buf := make([]byte, 0, 40+len(payload))
		buf = append(buf, password[:]...)
		buf = codec.AppendUint32(buf, sessionID)
		buf = append(buf, payload...)
		buf = codec.AppendUint32(buf, seq)
		buf = append(buf, password[:]...)
		if ty == AuthMD2 {
			return md2Sum(buf)
		}
		return md5.Sum(buf)
	}
	return [16]byte{}
}

// v15Message is a decoded IPMI 1.5 session packet body.
type v15Message struct {
	AuthType  AuthType
	Sequence  uint32
	SessionID uint32
	Payload   []byte
}

func encodeV15(ty AuthType, seq, sessionID uint32, password *[16]byte, payload []byte) ([]byte, error) {
	if len(payload) > 255 {
		return nil, ErrPayloadTooLong
	}

	out := make([]byte, 0, 27+len(payload))
	out = append(out, uint8(ty))
	out = codec.AppendUint32(out, seq)
	out = codec.AppendUint32(out, sessionID)

	if ty != AuthNone {
		if password == nil {
			return nil, ErrAuthFailed
		}
		code := authCode(ty, *password, sessionID, seq, payload)
		out = append(out, code[:]...)
	}

	out = append(out, uint8(len(payload)))
	out = append(out, payload...)
	// Legacy PAD.
	out = append(out, 0)
	return out, nil
}

func decodeV15(data []byte, password *[16]byte) (v15Message, error) {
	if len(data) < 10 {
		return v15Message{}, ErrAuthFailed
	}

	msg := v15Message{
		AuthType:  AuthType(data[0] & 0xF),
		Sequence:  codec.Uint32(data[1:5]),
		SessionID: codec.Uint32(data[5:9]),
	}

	rest := data[9:]
	if msg.AuthType != AuthNone {
		if len(rest) < 17 {
			return v15Message{}, ErrAuthFailed
		}
		var code [16]byte
		copy(code[:], rest[:16])
		rest = rest[16:]

		payload, err := v15Payload(rest)
		if err != nil {
			return v15Message{}, err
		}

		if password == nil {
			return v15Message{}, ErrAuthFailed
		}
		want := authCode(msg.AuthType, *password, msg.SessionID, msg.Sequence, payload)
		if subtle.ConstantTimeCompare(code[:], want[:]) != 1 {
			return v15Message{}, ErrIntegrityMismatch
		}
		msg.Payload = payload
		return msg, nil
	}

	payload, err := v15Payload(rest)
	if err != nil {
		return v15Message{}, err
	}
	msg.Payload = payload
	return msg, nil
}

// v15Payload splits a length-prefixed payload, tolerating the optional
// trailing legacy pad byte.
func v15Payload(rest []byte) ([]byte, error) {
	if len(rest) < 1 {
		return nil, ErrAuthFailed
	}
	n := int(rest[0])
	body := rest[1:]
	switch {
	case len(body) == n:
		return append([]byte(nil), body...), nil
	case len(body) == n+1:
		return append([]byte(nil), body[:n]...), nil
	}
	return nil, ErrAuthFailed
}

// V15 is an active (or activating) IPMI 1.5 session.
type V15 struct {
	state     State
	authType  AuthType
	sessionID uint32
	seqOut    uint32
	password  [16]byte
	window    ReplayWindow
}

// NewV15 prepares an IPMI 1.5 session wrapper in the activating state:
// packets are framed sessionless until Activate is called with the ids
// returned by Activate Session.
func NewV15(authType AuthType, password []byte) (*V15, error) {
	padded, err := Password16(password)
	if err != nil {
		return nil, err
	}
	return &V15{state: StateActivating, authType: authType, password: padded}, nil
}

// PreSession switches the wrapper to authenticate with the temporary
// session id during Activate Session.
func (s *V15) PreSession(temporaryID uint32) {
	s.sessionID = temporaryID
	s.seqOut = 0
}

// Activate installs the ids granted by a successful Activate Session.
func (s *V15) Activate(sessionID, initialSeq uint32) {
	s.state = StateActive
	s.sessionID = sessionID
	s.seqOut = initialSeq
	s.window = ReplayWindow{}
}

// State returns the current lifecycle state.
func (s *V15) State() State { return s.state }

func (s *V15) ID() uint32 { return s.sessionID }

// Wrap frames and authenticates an outbound payload.
func (s *V15) Wrap(payload []byte) ([]byte, error) {
	if s.state == StateActive {
		s.seqOut++
	}
	ty := s.authType
	if s.sessionID == 0 {
		ty = AuthNone
	}
	return encodeV15(ty, s.seqOut, s.sessionID, &s.password, payload)
}

// Unwrap authenticates an inbound packet and returns its payload.
func (s *V15) Unwrap(packet []byte) ([]byte, error) {
	msg, err := decodeV15(packet, &s.password)
	if err != nil {
		return nil, err
	}
	if s.state == StateActive {
		if msg.SessionID != s.sessionID {
			return nil, ErrWrongSessionID
		}
		if msg.Sequence != 0 && !s.window.Accept(msg.Sequence) {
			return nil, ErrSequenceRejected
		}
	}
	return msg.Payload, nil
}

// Close transitions to the closed state and clears the password.
func (s *V15) Close() {
	s.state = StateNone
	s.sessionID = 0
	for i := range s.password {
		s.password[i] = 0
	}
}
