package session

// RMCP+ per-packet envelope: AES-CBC-128 confidentiality under K2 and
// HMAC-SHA1-96 integrity under K1, both derived from the session integrity
// key negotiated by RAKP.

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"

	"github.com/tturner/ipmiq/internal/ipmi/codec"
)

const (
	// Auth type byte marking an RMCP+ (IPMI 2.0) session packet.
	authTypeRMCPPlus = 0x06

	sha1KeyLen  = 20
	authCodeLen = 12 // HMAC-SHA1 truncated to 96 bits
)

func hmacSHA1(key []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha1.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// Keys holds the session key material derived from the SIK.
type Keys struct {
	SIK [sha1KeyLen]byte
	K1  [sha1KeyLen]byte // integrity
	K2  [sha1KeyLen]byte // confidentiality; first 16 bytes are the AES key
}

// DeriveKeys expands a SIK into K1 and K2 per the IPMI 2.0 key expansion:
// Kn = HMAC-SHA1(SIK, n repeated 20 times).
func DeriveKeys(sik [sha1KeyLen]byte) *Keys {
	k := &Keys{SIK: sik}
	var c1, c2 [sha1KeyLen]byte
	for i := range c1 {
		c1[i], c2[i] = 0x01, 0x02
	}
	copy(k.K1[:], hmacSHA1(sik[:], c1[:]))
	copy(k.K2[:], hmacSHA1(sik[:], c2[:]))
	return k
}

// Zero clears the key material.
func (k *Keys) Zero() {
	for i := range k.SIK {
		k.SIK[i], k.K1[i], k.K2[i] = 0, 0, 0
	}
}

// Integrity selects the negotiated integrity algorithm.
type Integrity uint8

const (
	IntegrityNone       Integrity = 0x00
	IntegrityHMACSHA196 Integrity = 0x01
)

// Confidentiality selects the negotiated confidentiality algorithm.
type Confidentiality uint8

const (
	ConfidentialityNone      Confidentiality = 0x00
	ConfidentialityAESCBC128 Confidentiality = 0x01
)

// encryptAESCBC produces IV ‖ AES-CBC(data ‖ pad ‖ padlen). Pad bytes
// count up from 0x01 and a single trailing byte records the pad count.
func encryptAESCBC(key []byte, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:16])
	if err != nil {
		return nil, err
	}

	// Data plus the pad-length byte round up to the block size.
	padLen := (aes.BlockSize - (len(data)+1)%aes.BlockSize) % aes.BlockSize
	plain := make([]byte, 0, len(data)+padLen+1)
	plain = append(plain, data...)
	for i := 1; i <= padLen; i++ {
		plain = append(plain, uint8(i))
	}
	plain = append(plain, uint8(padLen))

	out := make([]byte, aes.BlockSize+len(plain))
	iv := out[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], plain)
	return out, nil
}

// decryptAESCBC reverses encryptAESCBC and validates the padding bytes.
func decryptAESCBC(key []byte, data []byte) ([]byte, error) {
	if len(data) < 2*aes.BlockSize || (len(data)-aes.BlockSize)%aes.BlockSize != 0 {
		return nil, ErrBadPadding
	}
	block, err := aes.NewCipher(key[:16])
	if err != nil {
		return nil, err
	}

	iv, body := data[:aes.BlockSize], data[aes.BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	padLen := int(plain[len(plain)-1])
	if padLen >= aes.BlockSize || padLen+1 > len(plain) {
		return nil, ErrBadPadding
	}
	for i := 1; i <= padLen; i++ {
		if plain[len(plain)-1-padLen+i-1] != uint8(i) {
			return nil, ErrBadPadding
		}
	}
	return plain[:len(plain)-1-padLen], nil
}

// V20 is an active RMCP+ session.
type V20 struct {
	state   State
	// Managed-system session id: sent in outbound headers.
	remoteID uint32
	// Remote-console session id: expected in inbound headers.
	localID uint32
	keys    *Keys
	integ   Integrity
	conf    Confidentiality
	seqOut  uint32
	window  ReplayWindow
}

// State returns the current lifecycle state.
func (s *V20) State() State { return s.state }

func (s *V20) ID() uint32 { return s.remoteID }

// Wrap applies the full outbound envelope to an IPMI message payload.
func (s *V20) Wrap(payload []byte) ([]byte, error) {
	if s.state != StateActive && s.state != StateClosing {
		return nil, ErrNotActive
	}
	s.seqOut++
	return s.wrapPayload(payloadTypeIPMI, s.remoteID, s.seqOut, payload)
}

func (s *V20) wrapPayload(payloadType uint8, sid, seq uint32, payload []byte) ([]byte, error) {
	encrypted := s.conf == ConfidentialityAESCBC128
	authenticated := s.integ == IntegrityHMACSHA196

	out := make([]byte, 0, 12+len(payload)+2*aes.BlockSize+authCodeLen+4)
	out = append(out, authTypeRMCPPlus)

	ptByte := payloadType & 0x3F
	if encrypted {
		ptByte |= 0x80
	}
	if authenticated {
		ptByte |= 0x40
	}
	out = append(out, ptByte)
	out = codec.AppendUint32(out, sid)
	out = codec.AppendUint32(out, seq)

	body := payload
	if encrypted {
		enc, err := encryptAESCBC(s.keys.K2[:], payload)
		if err != nil {
			return nil, err
		}
		body = enc
	}
	if len(body) > 0xFFFF {
		return nil, ErrPayloadTooLong
	}
	out = codec.AppendUint16(out, uint16(len(body)))
	out = append(out, body...)

	if authenticated {
		// Integrity pad brings the authenticated region, including the
		// pad-length and next-header bytes, to a 4-byte boundary.
		padLen := (4 - (len(out)+2)%4) % 4
		for i := 0; i < padLen; i++ {
			out = append(out, 0xFF)
		}
		out = append(out, uint8(padLen), 0x07)
		mac := hmacSHA1(s.keys.K1[:], out)
		out = append(out, mac[:authCodeLen]...)
	}
	return out, nil
}

// Unwrap authenticates, decrypts, and validates an inbound packet body,
// returning the bare IPMI payload.
func (s *V20) Unwrap(packet []byte) ([]byte, error) {
	msg, err := s.unwrapPayload(packet)
	if err != nil {
		return nil, err
	}
	if msg.PayloadType != payloadTypeIPMI {
		return nil, ErrAuthFailed
	}
	if msg.SessionID != s.localID {
		return nil, ErrWrongSessionID
	}
	if !s.window.Accept(msg.Sequence) {
		return nil, ErrSequenceRejected
	}
	return msg.Payload, nil
}

type v20Message struct {
	PayloadType uint8
	SessionID   uint32
	Sequence    uint32
	Payload     []byte
}

func (s *V20) unwrapPayload(packet []byte) (v20Message, error) {
	if len(packet) < 12 {
		return v20Message{}, ErrAuthFailed
	}
	if packet[0] != authTypeRMCPPlus {
		return v20Message{}, ErrAuthFailed
	}

	encrypted := packet[1]&0x80 != 0
	authenticated := packet[1]&0x40 != 0
	msg := v20Message{
		PayloadType: packet[1] & 0x3F,
		SessionID:   codec.Uint32(packet[2:6]),
		Sequence:    codec.Uint32(packet[6:10]),
	}

	if encrypted != (s.conf == ConfidentialityAESCBC128) ||
		authenticated != (s.integ == IntegrityHMACSHA196) {
		return v20Message{}, ErrAuthFailed
	}

	body := packet[12:]
	bodyLen := int(codec.Uint16(packet[10:12]))

	if authenticated {
		if len(body) < bodyLen+2+authCodeLen {
			return v20Message{}, ErrIntegrityMismatch
		}
		trailerEnd := len(packet) - authCodeLen
		want := hmacSHA1(s.keys.K1[:], packet[:trailerEnd])
		if subtle.ConstantTimeCompare(packet[trailerEnd:], want[:authCodeLen]) != 1 {
			return v20Message{}, ErrIntegrityMismatch
		}
		body = body[:bodyLen]
	} else if len(body) != bodyLen {
		return v20Message{}, ErrAuthFailed
	}

	if encrypted {
		plain, err := decryptAESCBC(s.keys.K2[:], body)
		if err != nil {
			return v20Message{}, err
		}
		msg.Payload = plain
	} else {
		msg.Payload = append([]byte(nil), body...)
	}
	return msg, nil
}

// Close transitions the session toward teardown and zeroizes keys. The
// caller sends Close Session before calling this.
func (s *V20) Close() {
	s.state = StateNone
	if s.keys != nil {
		s.keys.Zero()
	}
	s.remoteID, s.localID = 0, 0
}
