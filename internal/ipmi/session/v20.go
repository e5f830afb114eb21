package session

// RMCP+ session establishment: Open Session Request/Response followed by
// RAKP messages 1 through 4. The handshake object is sans-I/O; each step
// returns the next payload to transmit (already wrapped in the
// out-of-session RMCP+ header) and consumes the managed system's reply.

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// RMCP+ payload types.
const (
	payloadTypeIPMI        = 0x00
	payloadTypeOpenSessReq = 0x10
	payloadTypeOpenSessRsp = 0x11
	payloadTypeRAKP1       = 0x12
	payloadTypeRAKP2       = 0x13
	payloadTypeRAKP3       = 0x14
	payloadTypeRAKP4       = 0x15
)

// RAKP authentication algorithm codes.
const (
	authAlgRAKPNone     = 0x00
	authAlgRAKPHMACSHA1 = 0x01
)

// rakpStatusText maps RAKP status codes to text, IPMI 2.0 table 13-15.
var rakpStatusText = map[uint8]string{
	0x01: "insufficient resources",
	0x02: "invalid session id",
	0x03: "invalid payload type",
	0x04: "invalid authentication algorithm",
	0x05: "invalid integrity algorithm",
	0x06: "no matching authentication payload",
	0x07: "no matching integrity payload",
	0x08: "inactive session id",
	0x09: "invalid role",
	0x0A: "unauthorized role or privilege level requested",
	0x0B: "insufficient resources to create a session at the requested role",
	0x0C: "invalid name length",
	0x0D: "unauthorized name",
	0x0E: "unauthorized GUID",
	0x0F: "invalid integrity check value",
	0x10: "invalid confidentiality algorithm",
	0x11: "no cipher suite match with proposed security algorithms",
	0x12: "illegal or unrecognized parameter",
}

// RAKPError is a non-zero RAKP status code returned by the managed system.
type RAKPError struct {
	Message string
	Code    uint8
}

func (e *RAKPError) Error() string {
	text, ok := rakpStatusText[e.Code]
	if !ok {
		text = "unknown status"
	}
	return fmt.Sprintf("session: %s rejected: %s (0x%02X)", e.Message, text, e.Code)
}

// CipherSuite is the negotiated algorithm triple. Only RAKP-HMAC-SHA1
// authentication with the HMAC-SHA1-96 / AES-CBC-128 family is supported.
type CipherSuite struct {
	Integrity       Integrity
	Confidentiality Confidentiality
}

// CipherSuite3 is authentication RAKP-HMAC-SHA1, integrity HMAC-SHA1-96,
// confidentiality AES-CBC-128, the mandatory IPMI 2.0 suite.
var CipherSuite3 = CipherSuite{
	Integrity:       IntegrityHMACSHA196,
	Confidentiality: ConfidentialityAESCBC128,
}

// Credentials identify the user opening the session.
type Credentials struct {
	Username  string // at most 16 bytes
	Password  []byte // at most 20 bytes
	KG        []byte // optional BMC key; password is used when empty
	Privilege protocol.PrivilegeLevel
}

func (c Credentials) validate() error {
	if len(c.Username) > 16 {
		return fmt.Errorf("session: username longer than 16 bytes")
	}
	if len(c.Password) > 20 {
		return fmt.Errorf("session: password longer than 20 bytes")
	}
	if len(c.KG) != 0 && len(c.KG) != 20 {
		return fmt.Errorf("session: KG must be 20 bytes")
	}
	return nil
}

func (c Credentials) kg() []byte {
	if len(c.KG) != 0 {
		return c.KG
	}
	return c.Password
}

// handshakePhase tracks which message the handshake expects next.
type handshakePhase uint8

const (
	phaseStart handshakePhase = iota
	phaseOpenSent
	phaseRAKP1Sent
	phaseRAKP3Sent
	phaseDone
	phaseFailed
)

// Handshake drives RMCP+ session setup.
type Handshake struct {
	phase handshakePhase
	creds Credentials
	suite CipherSuite

	messageTag uint8
	consoleID  uint32 // remote console session id (ours)
	systemID   uint32 // managed system session id (theirs)

	consoleRandom [16]byte
	systemRandom  [16]byte
	systemGUID    [16]byte

	keys *Keys
}

// NewHandshake prepares a handshake for the given credentials and suite.
// consoleID is the remote console session id offered in the open request.
func NewHandshake(creds Credentials, suite CipherSuite, consoleID uint32) (*Handshake, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	if suite != CipherSuite3 && suite != (CipherSuite{}) {
		return nil, ErrUnsupportedSuite
	}
	h := &Handshake{creds: creds, suite: suite, consoleID: consoleID}
	if _, err := rand.Read(h.consoleRandom[:]); err != nil {
		return nil, err
	}
	return h, nil
}

// outOfSession wraps a handshake payload in the unauthenticated,
// unencrypted RMCP+ session header.
func outOfSession(payloadType uint8, payload []byte) []byte {
	out := make([]byte, 0, 12+len(payload))
	out = append(out, authTypeRMCPPlus, payloadType)
	out = codec.AppendUint32(out, 0) // session id
	out = codec.AppendUint32(out, 0) // sequence
	out = codec.AppendUint16(out, uint16(len(payload)))
	return append(out, payload...)
}

// parseOutOfSession strips the out-of-session header and checks the
// expected payload type.
func parseOutOfSession(packet []byte, wantType uint8) ([]byte, error) {
	if len(packet) < 12 || packet[0] != authTypeRMCPPlus {
		return nil, ErrAuthFailed
	}
	if packet[1]&0x3F != wantType {
		return nil, fmt.Errorf("session: unexpected payload type 0x%02X, want 0x%02X", packet[1]&0x3F, wantType)
	}
	n := int(codec.Uint16(packet[10:12]))
	body := packet[12:]
	if len(body) < n {
		return nil, ErrAuthFailed
	}
	return body[:n], nil
}

// algorithmPayload encodes one open-session algorithm proposal.
func algorithmPayload(payloadType, algorithm uint8) []byte {
	return []byte{payloadType, 0x00, 0x00, 0x08, algorithm, 0x00, 0x00, 0x00}
}

// OpenSessionRequest emits the first handshake packet.
func (h *Handshake) OpenSessionRequest() ([]byte, error) {
	if h.phase != phaseStart {
		return nil, fmt.Errorf("session: open session request out of order")
	}

	body := make([]byte, 0, 32)
	body = append(body, h.messageTag, uint8(h.creds.Privilege)&0xF, 0x00, 0x00)
	body = codec.AppendUint32(body, h.consoleID)
	body = append(body, algorithmPayload(0x00, authAlgRAKPHMACSHA1)...)
	body = append(body, algorithmPayload(0x01, uint8(h.suite.Integrity))...)
	body = append(body, algorithmPayload(0x02, uint8(h.suite.Confidentiality))...)

	h.phase = phaseOpenSent
	return outOfSession(payloadTypeOpenSessReq, body), nil
}

// HandleOpenSessionResponse validates the managed system's reply and
// verifies the accepted algorithms match the proposal.
func (h *Handshake) HandleOpenSessionResponse(packet []byte) error {
	if h.phase != phaseOpenSent {
		return fmt.Errorf("session: open session response out of order")
	}

	body, err := parseOutOfSession(packet, payloadTypeOpenSessRsp)
	if err != nil {
		h.phase = phaseFailed
		return err
	}
	if len(body) < 2 {
		h.phase = phaseFailed
		return ErrAuthFailed
	}
	if body[1] != 0 {
		h.phase = phaseFailed
		return &RAKPError{Message: "open session", Code: body[1]}
	}
	if len(body) < 36 {
		h.phase = phaseFailed
		return ErrAuthFailed
	}

	if codec.Uint32(body[4:8]) != h.consoleID {
		h.phase = phaseFailed
		return ErrWrongSessionID
	}
	h.systemID = codec.Uint32(body[8:12])

	// Each accepted algorithm payload: type, reserved×2, len, algorithm.
	for _, off := range []int{12, 20, 28} {
		ptype, alg := body[off], body[off+4]&0x3F
		var want uint8
		switch ptype {
		case 0x00:
			want = authAlgRAKPHMACSHA1
		case 0x01:
			want = uint8(h.suite.Integrity)
		case 0x02:
			want = uint8(h.suite.Confidentiality)
		default:
			h.phase = phaseFailed
			return ErrUnsupportedSuite
		}
		if alg != want {
			h.phase = phaseFailed
			return ErrUnsupportedSuite
		}
	}
	return nil
}

// RAKP1 emits RAKP message 1.
func (h *Handshake) RAKP1() ([]byte, error) {
	if h.phase != phaseOpenSent || h.systemID == 0 {
		return nil, fmt.Errorf("session: RAKP1 out of order")
	}

	body := make([]byte, 0, 44)
	body = append(body, h.messageTag, 0x00, 0x00, 0x00)
	body = codec.AppendUint32(body, h.systemID)
	body = append(body, h.consoleRandom[:]...)
	// Requested role: bit 4 set = named-user lookup.
	body = append(body, uint8(h.creds.Privilege)&0xF|0x10, 0x00, 0x00)
	body = append(body, uint8(len(h.creds.Username)))
	body = append(body, h.creds.Username...)

	h.phase = phaseRAKP1Sent
	return outOfSession(payloadTypeRAKP1, body), nil
}

// roleByte is the privilege byte as carried in RAKP HMAC inputs.
func (h *Handshake) roleByte() uint8 {
	return uint8(h.creds.Privilege)&0xF | 0x10
}

// HandleRAKP2 verifies the managed system's key exchange auth code and
// derives the session keys.
func (h *Handshake) HandleRAKP2(packet []byte) error {
	if h.phase != phaseRAKP1Sent {
		return fmt.Errorf("session: RAKP2 out of order")
	}

	body, err := parseOutOfSession(packet, payloadTypeRAKP2)
	if err != nil {
		h.phase = phaseFailed
		return err
	}
	if len(body) < 2 {
		h.phase = phaseFailed
		return ErrAuthFailed
	}
	if body[1] != 0 {
		h.phase = phaseFailed
		return &RAKPError{Message: "RAKP2", Code: body[1]}
	}
	if len(body) < 40+sha1KeyLen {
		h.phase = phaseFailed
		return ErrAuthFailed
	}
	if codec.Uint32(body[4:8]) != h.consoleID {
		h.phase = phaseFailed
		return ErrWrongSessionID
	}
	copy(h.systemRandom[:], body[8:24])
	copy(h.systemGUID[:], body[24:40])
	exchangeCode := body[40 : 40+sha1KeyLen]

	// HMAC(password, SIDm ‖ SIDc ‖ Rm ‖ Rc ‖ GUIDc ‖ role ‖ ulen ‖ uname)
	var sidm, sidc [4]byte
	codec.PutUint32(sidm[:], h.consoleID)
	codec.PutUint32(sidc[:], h.systemID)
	want := hmacSHA1(h.creds.Password,
		sidm[:], sidc[:],
		h.consoleRandom[:], h.systemRandom[:], h.systemGUID[:],
		[]byte{h.roleByte(), uint8(len(h.creds.Username))},
		[]byte(h.creds.Username),
	)
	if subtle.ConstantTimeCompare(exchangeCode, want) != 1 {
		h.phase = phaseFailed
		return ErrAuthFailed
	}

	// SIK = HMAC(KG, Rm ‖ Rc ‖ role ‖ ulen ‖ uname)
	var sik [sha1KeyLen]byte
	copy(sik[:], hmacSHA1(h.creds.kg(),
		h.consoleRandom[:], h.systemRandom[:],
		[]byte{h.roleByte(), uint8(len(h.creds.Username))},
		[]byte(h.creds.Username),
	))
	h.keys = DeriveKeys(sik)
	return nil
}

// RAKP3 emits RAKP message 3, carrying the console's key exchange auth
// code.
func (h *Handshake) RAKP3() ([]byte, error) {
	if h.phase != phaseRAKP1Sent || h.keys == nil {
		return nil, fmt.Errorf("session: RAKP3 out of order")
	}

	// HMAC(password, Rc ‖ SIDm ‖ role ‖ ulen ‖ uname)
	var sidm [4]byte
	codec.PutUint32(sidm[:], h.consoleID)
	code := hmacSHA1(h.creds.Password,
		h.systemRandom[:], sidm[:],
		[]byte{h.roleByte(), uint8(len(h.creds.Username))},
		[]byte(h.creds.Username),
	)

	body := make([]byte, 0, 8+len(code))
	body = append(body, h.messageTag, 0x00, 0x00, 0x00)
	body = codec.AppendUint32(body, h.systemID)
	body = append(body, code...)

	h.phase = phaseRAKP3Sent
	return outOfSession(payloadTypeRAKP3, body), nil
}

// HandleRAKP4 verifies the integrity check value closing the handshake.
func (h *Handshake) HandleRAKP4(packet []byte) error {
	if h.phase != phaseRAKP3Sent {
		return fmt.Errorf("session: RAKP4 out of order")
	}

	body, err := parseOutOfSession(packet, payloadTypeRAKP4)
	if err != nil {
		h.phase = phaseFailed
		return err
	}
	if len(body) < 2 {
		h.phase = phaseFailed
		return ErrAuthFailed
	}
	if body[1] != 0 {
		h.phase = phaseFailed
		return &RAKPError{Message: "RAKP4", Code: body[1]}
	}
	if len(body) < 8+authCodeLen {
		h.phase = phaseFailed
		return ErrAuthFailed
	}
	if codec.Uint32(body[4:8]) != h.consoleID {
		h.phase = phaseFailed
		return ErrWrongSessionID
	}

	if !VerifyRAKP4(h.keys.SIK, h.consoleRandom, h.systemID, h.systemGUID, body[8:8+authCodeLen]) {
		h.phase = phaseFailed
		return ErrAuthFailed
	}

	h.phase = phaseDone
	return nil
}

// VerifyRAKP4 recomputes HMAC-SHA1(SIK, Rm ‖ SIDc ‖ GUIDc), truncates it
// to 96 bits, and compares it to the received integrity check value in
// constant time.
func VerifyRAKP4(sik [sha1KeyLen]byte, consoleRandom [16]byte, systemID uint32, guid [16]byte, icv []byte) bool {
	var sidc [4]byte
	codec.PutUint32(sidc[:], systemID)
	want := hmacSHA1(sik[:], consoleRandom[:], sidc[:], guid[:])
	return subtle.ConstantTimeCompare(icv, want[:authCodeLen]) == 1
}

// Session returns the established session wrapper. Valid only after
// HandleRAKP4 succeeds.
func (h *Handshake) Session() (*V20, error) {
	if h.phase != phaseDone {
		return nil, ErrNotActive
	}
	return &V20{
		state:    StateActive,
		remoteID: h.systemID,
		localID:  h.consoleID,
		keys:     h.keys,
		integ:    h.suite.Integrity,
		conf:     h.suite.Confidentiality,
	}, nil
}

// SystemGUID returns the managed system GUID observed during RAKP2.
func (h *Handshake) SystemGUID() [16]byte { return h.systemGUID }
