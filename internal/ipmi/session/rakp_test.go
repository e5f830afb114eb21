package session

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// fakeBMC answers the RMCP+ handshake the way a managed system would,
// using the same credentials.
type fakeBMC struct {
	creds    Credentials
	sid      uint32 // managed system session id
	guid     [16]byte
	random   [16]byte
	sik      [20]byte
	// captured from the console's messages
	consoleID     uint32
	consoleRandom [16]byte
	roleByte      uint8
	usernameLen   uint8
}

func (b *fakeBMC) openSessionResponse(t *testing.T, req []byte) []byte {
	t.Helper()
	body, err := parseOutOfSession(req, payloadTypeOpenSessReq)
	if err != nil {
		t.Fatalf("open session request: %v", err)
	}
	b.consoleID = codec.Uint32(body[4:8])

	resp := make([]byte, 0, 36)
	resp = append(resp, body[0], 0x00, uint8(protocol.PrivilegeAdministrator), 0x00)
	resp = codec.AppendUint32(resp, b.consoleID)
	resp = codec.AppendUint32(resp, b.sid)
	resp = append(resp, algorithmPayload(0x00, authAlgRAKPHMACSHA1)...)
	resp = append(resp, algorithmPayload(0x01, uint8(IntegrityHMACSHA196))...)
	resp = append(resp, algorithmPayload(0x02, uint8(ConfidentialityAESCBC128))...)
	return outOfSession(payloadTypeOpenSessRsp, resp)
}

func (b *fakeBMC) rakp2(t *testing.T, rakp1 []byte) []byte {
	t.Helper()
	body, err := parseOutOfSession(rakp1, payloadTypeRAKP1)
	if err != nil {
		t.Fatalf("rakp1: %v", err)
	}
	if codec.Uint32(body[4:8]) != b.sid {
		t.Fatalf("rakp1 addressed to sid 0x%X, want 0x%X", codec.Uint32(body[4:8]), b.sid)
	}
	copy(b.consoleRandom[:], body[8:24])
	b.roleByte = body[24]
	b.usernameLen = body[27]
	username := body[28 : 28+int(b.usernameLen)]
	if string(username) != b.creds.Username {
		t.Fatalf("rakp1 username %q, want %q", username, b.creds.Username)
	}

	var sidm, sidc [4]byte
	codec.PutUint32(sidm[:], b.consoleID)
	codec.PutUint32(sidc[:], b.sid)
	code := hmacSHA1(b.creds.Password,
		sidm[:], sidc[:], b.consoleRandom[:], b.random[:], b.guid[:],
		[]byte{b.roleByte, b.usernameLen}, username)

	copy(b.sik[:], hmacSHA1(b.creds.kg(),
		b.consoleRandom[:], b.random[:],
		[]byte{b.roleByte, b.usernameLen}, username))

	resp := make([]byte, 0, 60)
	resp = append(resp, body[0], 0x00, 0x00, 0x00)
	resp = codec.AppendUint32(resp, b.consoleID)
	resp = append(resp, b.random[:]...)
	resp = append(resp, b.guid[:]...)
	resp = append(resp, code...)
	return outOfSession(payloadTypeRAKP2, resp)
}

func (b *fakeBMC) rakp4(t *testing.T, rakp3 []byte) []byte {
	t.Helper()
	body, err := parseOutOfSession(rakp3, payloadTypeRAKP3)
	if err != nil {
		t.Fatalf("rakp3: %v", err)
	}

	// Verify the console's key exchange auth code.
	var sidm [4]byte
	codec.PutUint32(sidm[:], b.consoleID)
	want := hmacSHA1(b.creds.Password,
		b.random[:], sidm[:],
		[]byte{b.roleByte, b.usernameLen}, []byte(b.creds.Username))
	if !bytes.Equal(body[8:28], want) {
		t.Fatal("rakp3 key exchange auth code mismatch")
	}

	var sidc [4]byte
	codec.PutUint32(sidc[:], b.sid)
	icv := hmacSHA1(b.sik[:], b.consoleRandom[:], sidc[:], b.guid[:])[:authCodeLen]

	resp := make([]byte, 0, 20)
	resp = append(resp, body[0], 0x00, 0x00, 0x00)
	resp = codec.AppendUint32(resp, b.consoleID)
	resp = append(resp, icv...)
	return outOfSession(payloadTypeRAKP4, resp)
}

func TestHandshake(t *testing.T) {
	creds := Credentials{
		Username:  "admin",
		Password:  []byte("hunter2hunter2"),
		Privilege: protocol.PrivilegeAdministrator,
	}
	bmc := &fakeBMC{creds: creds, sid: 0x02000001}
	copy(bmc.guid[:], bytes.Repeat([]byte{0xAB}, 16))
	copy(bmc.random[:], bytes.Repeat([]byte{0xCD}, 16))

	h, err := NewHandshake(creds, CipherSuite3, 0xA0A0A0A0)
	if err != nil {
		t.Fatalf("NewHandshake: %v", err)
	}

	open, err := h.OpenSessionRequest()
	if err != nil {
		t.Fatalf("OpenSessionRequest: %v", err)
	}
	if err := h.HandleOpenSessionResponse(bmc.openSessionResponse(t, open)); err != nil {
		t.Fatalf("HandleOpenSessionResponse: %v", err)
	}

	rakp1, err := h.RAKP1()
	if err != nil {
		t.Fatalf("RAKP1: %v", err)
	}
	if err := h.HandleRAKP2(bmc.rakp2(t, rakp1)); err != nil {
		t.Fatalf("HandleRAKP2: %v", err)
	}

	rakp3, err := h.RAKP3()
	if err != nil {
		t.Fatalf("RAKP3: %v", err)
	}
	if err := h.HandleRAKP4(bmc.rakp4(t, rakp3)); err != nil {
		t.Fatalf("HandleRAKP4: %v", err)
	}

	sess, err := h.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.State() != StateActive || sess.ID() != bmc.sid {
		t.Errorf("session = state %v id 0x%X", sess.State(), sess.ID())
	}

	// Both ends hold the same SIK, so a peer session built from the
	// BMC's copy can decrypt the console's traffic.
	peer := &V20{
		state: StateActive, remoteID: 0xA0A0A0A0, localID: bmc.sid,
		keys: DeriveKeys(bmc.sik), integ: IntegrityHMACSHA196, conf: ConfidentialityAESCBC128,
	}
	packet, err := sess.Wrap([]byte("get device id"))
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	got, err := peer.Unwrap(packet)
	if err != nil {
		t.Fatalf("peer Unwrap: %v", err)
	}
	if string(got) != "get device id" {
		t.Errorf("payload = %q", got)
	}
}

func TestHandshake_WrongPassword(t *testing.T) {
	creds := Credentials{Username: "admin", Password: []byte("right"), Privilege: protocol.PrivilegeOperator}
	bmcCreds := creds
	bmcCreds.Password = []byte("wrong")
	bmc := &fakeBMC{creds: bmcCreds, sid: 0x55}

	h, err := NewHandshake(creds, CipherSuite3, 1)
	if err != nil {
		t.Fatal(err)
	}
	open, _ := h.OpenSessionRequest()
	if err := h.HandleOpenSessionResponse(bmc.openSessionResponse(t, open)); err != nil {
		t.Fatal(err)
	}
	rakp1, _ := h.RAKP1()
	if err := h.HandleRAKP2(bmc.rakp2(t, rakp1)); err != ErrAuthFailed {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
	if _, err := h.RAKP3(); err == nil {
		t.Error("RAKP3 must fail after a failed RAKP2")
	}
}

func TestHandshake_RAKPErrorStatus(t *testing.T) {
	h, err := NewHandshake(Credentials{Username: "u", Password: []byte("p")}, CipherSuite3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.OpenSessionRequest(); err != nil {
		t.Fatal(err)
	}

	// Status 0x11: no cipher suite match.
	resp := outOfSession(payloadTypeOpenSessRsp, []byte{0x00, 0x11})
	err = h.HandleOpenSessionResponse(resp)
	var rakpErr *RAKPError
	if !errors.As(err, &rakpErr) || rakpErr.Code != 0x11 {
		t.Errorf("err = %v, want RAKPError 0x11", err)
	}
}

func TestNewHandshake_Validation(t *testing.T) {
	if _, err := NewHandshake(Credentials{Username: "this-username-is-way-too-long"}, CipherSuite3, 1); err == nil {
		t.Error("expected error for long username")
	}
	if _, err := NewHandshake(Credentials{Password: bytes.Repeat([]byte{1}, 21)}, CipherSuite3, 1); err == nil {
		t.Error("expected error for long password")
	}
	if _, err := NewHandshake(Credentials{KG: []byte{1, 2, 3}}, CipherSuite3, 1); err == nil {
		t.Error("expected error for short KG")
	}
}
