package session

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestReplayWindow(t *testing.T) {
	var w ReplayWindow

	for _, seq := range []uint32{1, 2, 3} {
		if !w.Accept(seq) {
			t.Fatalf("sequence %d should be accepted", seq)
		}
	}
	if w.Accept(2) {
		t.Error("duplicate 2 must be dropped")
	}
	if !w.Accept(20) {
		t.Error("20 is ahead of the window and must be accepted")
	}
	if w.Accept(3) {
		t.Error("3 is outside the advanced window and must be dropped")
	}
	if !w.Accept(19) {
		t.Error("19 is inside the window and unseen")
	}
	if w.Accept(19) {
		t.Error("19 replayed must be dropped")
	}
}

func TestReplayWindow_FarJump(t *testing.T) {
	var w ReplayWindow
	if !w.Accept(5) || !w.Accept(1000) {
		t.Fatal("forward jumps must be accepted")
	}
	if w.Accept(5) {
		t.Error("5 is far behind and must be dropped")
	}
	if !w.Accept(999) {
		t.Error("999 is within the new window")
	}
}

func TestMD2Vectors(t *testing.T) {
	// RFC 1319 test suite.
	tests := []struct {
		in   string
		want string
	}{
		{"", "8350e5a3e24c153df2275c9f80692773"},
		{"a", "32ec01ec4a6dac72c0ab96fb34c0b5d1"},
		{"abc", "da853b0d3f88d99b30283a69e6ded6bb"},
		{"message digest", "ab4f496bfb2a530b219ff33031fe06b0"},
		{"abcdefghijklmnopqrstuvwxyz", "4e8ddff3650292ab5a4108c3aa47940b"},
		{"1234567812345678", "85395cd97a714df88ff2a407a0ebc74c"},
	}
	for _, tt := range tests {
		got := md2Sum([]byte(tt.in))
		if hex.EncodeToString(got[:]) != tt.want {
			t.Errorf("md2(%q) = %x, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDecodeV15_MD5Vector(t *testing.T) {
	// Empty payload authenticated with MD5, session id 2, sequence 1,
	// password "password".
	packet := []byte{
		2,
		1, 0, 0, 0,
		2, 0, 0, 0,
		152, 54, 135, 85, 190, 228, 38, 149, 133, 51, 201, 23, 232, 140, 18, 211,
		0,
	}
	password, err := Password16([]byte("password"))
	if err != nil {
		t.Fatal(err)
	}

	msg, err := decodeV15(packet, &password)
	if err != nil {
		t.Fatalf("decodeV15: %v", err)
	}
	if msg.AuthType != AuthMD5 || msg.Sequence != 1 || msg.SessionID != 2 || len(msg.Payload) != 0 {
		t.Errorf("message = %+v", msg)
	}

	// A single corrupted auth code byte must be rejected.
	bad := append([]byte(nil), packet...)
	bad[9] ^= 0x01
	if _, err := decodeV15(bad, &password); err != ErrIntegrityMismatch {
		t.Errorf("corrupted auth code: err = %v, want ErrIntegrityMismatch", err)
	}
}

func TestV15RoundTrip(t *testing.T) {
	password, _ := Password16([]byte("secret"))
	payload := []byte{0x20, 0x18, 0xC8, 0x81, 0x04, 0x01, 0x76}

	packet, err := encodeV15(AuthMD5, 7, 0xA1B2C3D4, &password, payload)
	if err != nil {
		t.Fatalf("encodeV15: %v", err)
	}
	msg, err := decodeV15(packet, &password)
	if err != nil {
		t.Fatalf("decodeV15: %v", err)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Errorf("payload = % X, want % X", msg.Payload, payload)
	}
	if msg.Sequence != 7 || msg.SessionID != 0xA1B2C3D4 {
		t.Errorf("message = %+v", msg)
	}
}

func TestNoneWrapper(t *testing.T) {
	payload := []byte{0x06 << 2, 0x01}
	packet, err := None{}.Wrap(payload)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	// Session header must be all zeroes: auth type, sequence, id.
	if !bytes.Equal(packet[:9], make([]byte, 9)) {
		t.Errorf("header = % X", packet[:9])
	}
	got, err := None{}.Unwrap(packet)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = % X", got)
	}
}

func TestDeriveKeys(t *testing.T) {
	var sik [20]byte
	copy(sik[:], []byte("0123456789abcdefghij"))

	k := DeriveKeys(sik)
	if k.K1 == k.K2 {
		t.Error("K1 and K2 must differ")
	}
	if k2 := DeriveKeys(sik); k2.K1 != k.K1 || k2.K2 != k.K2 {
		t.Error("derivation must be deterministic")
	}

	k.Zero()
	if k.K1 != [20]byte{} || k.SIK != [20]byte{} {
		t.Error("Zero must clear key material")
	}
}

func TestHMACSHA1Vector(t *testing.T) {
	// RFC 2202 test case 1.
	key := bytes.Repeat([]byte{0x0B}, 20)
	got := hmacSHA1(key, []byte("Hi There"))
	want, _ := hex.DecodeString("b617318655057264e28bc0b6fb378c8ef146be00")
	if !bytes.Equal(got, want) {
		t.Errorf("hmac = %x, want %x", got, want)
	}
}

func TestAESCBCRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123")

	for _, n := range []int{0, 1, 15, 16, 17, 100} {
		payload := bytes.Repeat([]byte{0xA5}, n)
		enc, err := encryptAESCBC(key, payload)
		if err != nil {
			t.Fatalf("encrypt %d bytes: %v", n, err)
		}
		if len(enc)%16 != 0 || len(enc) < 32 {
			t.Errorf("ciphertext length %d not block aligned", len(enc))
		}
		dec, err := decryptAESCBC(key, enc)
		if err != nil {
			t.Fatalf("decrypt %d bytes: %v", n, err)
		}
		if !bytes.Equal(dec, payload) {
			t.Errorf("round trip failed for %d bytes", n)
		}
	}
}

func TestDecryptAESCBC_BadPadding(t *testing.T) {
	key := []byte("0123456789abcdef0123")
	enc, err := encryptAESCBC(key, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	// Corrupt the last ciphertext block to scramble the pad.
	enc[len(enc)-1] ^= 0xFF
	if _, err := decryptAESCBC(key, enc); err == nil {
		t.Error("expected padding error")
	}
}

// testPair builds two V20 sessions that face each other: what the client
// wraps, the peer can unwrap, and vice versa.
func testPair(t *testing.T) (client, peer *V20) {
	t.Helper()
	var sik [20]byte
	copy(sik[:], bytes.Repeat([]byte{0x42}, 20))
	keys := DeriveKeys(sik)

	client = &V20{
		state: StateActive, remoteID: 0xBB00, localID: 0xAA00,
		keys: keys, integ: IntegrityHMACSHA196, conf: ConfidentialityAESCBC128,
	}
	peer = &V20{
		state: StateActive, remoteID: 0xAA00, localID: 0xBB00,
		keys: keys, integ: IntegrityHMACSHA196, conf: ConfidentialityAESCBC128,
	}
	return client, peer
}

func TestV20WrapUnwrap(t *testing.T) {
	client, peer := testPair(t)

	for _, n := range []int{0, 7, 16, 33} {
		payload := bytes.Repeat([]byte{0x5A}, n)
		packet, err := client.Wrap(payload)
		if err != nil {
			t.Fatalf("Wrap %d bytes: %v", n, err)
		}
		got, err := peer.Unwrap(packet)
		if err != nil {
			t.Fatalf("Unwrap %d bytes: %v", n, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("round trip failed for %d bytes", n)
		}
	}
}

func TestV20Unwrap_Tampered(t *testing.T) {
	client, peer := testPair(t)

	packet, err := client.Wrap([]byte("reading"))
	if err != nil {
		t.Fatal(err)
	}
	packet[14] ^= 0x01
	if _, err := peer.Unwrap(packet); err != ErrIntegrityMismatch {
		t.Errorf("tampered packet: err = %v, want ErrIntegrityMismatch", err)
	}
}

func TestV20Unwrap_Replay(t *testing.T) {
	client, peer := testPair(t)

	packet, err := client.Wrap([]byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := peer.Unwrap(packet); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if _, err := peer.Unwrap(packet); err != ErrSequenceRejected {
		t.Errorf("replayed packet: err = %v, want ErrSequenceRejected", err)
	}
}

func TestV20Unwrap_WrongSession(t *testing.T) {
	client, peer := testPair(t)
	peer.localID++

	packet, err := client.Wrap([]byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := peer.Unwrap(packet); err != ErrWrongSessionID {
		t.Errorf("err = %v, want ErrWrongSessionID", err)
	}
}

func TestVerifyRAKP4(t *testing.T) {
	var sik [20]byte
	copy(sik[:], bytes.Repeat([]byte{0x11}, 20))
	var random1, guid [16]byte
	copy(random1[:], bytes.Repeat([]byte{0x22}, 16))
	copy(guid[:], bytes.Repeat([]byte{0x33}, 16))
	const sid = 0x01020304

	var sidc [4]byte
	sidc[0], sidc[1], sidc[2], sidc[3] = 0x04, 0x03, 0x02, 0x01
	icv := hmacSHA1(sik[:], random1[:], sidc[:], guid[:])[:12]

	if !VerifyRAKP4(sik, random1, sid, guid, icv) {
		t.Error("valid integrity check value rejected")
	}

	flipped := append([]byte(nil), icv...)
	flipped[0] ^= 0x01
	if VerifyRAKP4(sik, random1, sid, guid, flipped) {
		t.Error("single-bit flip must reject the session")
	}

	if VerifyRAKP4(sik, random1, sid+1, guid, icv) {
		t.Error("changed session id must reject")
	}
}
