package codec

// IPMI device ID strings (SDR ID strings, FRU strings) carry a type/length
// byte: bits 7:6 select the encoding, bits 4:0 the character count.

import "fmt"

// StringEncoding is the 2-bit encoding selector from a type/length byte.
type StringEncoding uint8

const (
	EncodingUnicode StringEncoding = 0b00
	EncodingBCDPlus StringEncoding = 0b01
	EncodingAscii6  StringEncoding = 0b10
	EncodingLatin1  StringEncoding = 0b11
)

func (e StringEncoding) String() string {
	switch e {
	case EncodingUnicode:
		return "unicode"
	case EncodingBCDPlus:
		return "bcd+"
	case EncodingAscii6:
		return "6-bit ascii"
	case EncodingLatin1:
		return "ascii+latin1"
	}
	return fmt.Sprintf("encoding(%d)", uint8(e))
}

// bcdPlusDigits maps the BCD+ nibble values. 0x0..0x9 are digits; the
// spec assigns space, dash and period to 0xA..0xC.
var bcdPlusDigits = [13]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', ' ', '-', '.'}

// EncodedLen returns how many bytes an ID string of n characters occupies
// on the wire for the given encoding.
func EncodedLen(enc StringEncoding, n int) int {
	switch enc {
	case EncodingBCDPlus:
		return (n + 1) / 2
	case EncodingAscii6:
		return (n*6 + 7) / 8
	default:
		return n
	}
}

// DecodeTypeLength decodes a type/length byte followed by its packed data.
// It returns the decoded string and the number of data bytes consumed.
func DecodeTypeLength(typeLen uint8, data []byte) (string, int, error) {
	enc := StringEncoding(typeLen >> 6 & 0x3)
	n := int(typeLen & 0x1F)

	need := EncodedLen(enc, n)
	if len(data) < need {
		return "", 0, fmt.Errorf("id string: have %d bytes, need %d for %d %s chars", len(data), need, n, enc)
	}

	s, err := DecodeString(enc, data[:need], n)
	return s, need, err
}

// DecodeString decodes exactly n characters from packed data.
func DecodeString(enc StringEncoding, data []byte, n int) (string, error) {
	if len(data) < EncodedLen(enc, n) {
		return "", fmt.Errorf("id string: %d bytes too short for %d %s chars", len(data), n, enc)
	}
	switch enc {
	case EncodingUnicode, EncodingLatin1:
		return string(data[:n]), nil
	case EncodingBCDPlus:
		return decodeBCDPlus(data, n)
	case EncodingAscii6:
		return decodeAscii6(data, n)
	}
	return "", fmt.Errorf("id string: invalid encoding %d", enc)
}

func decodeBCDPlus(data []byte, n int) (string, error) {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		b := data[i/2]
		var nibble uint8
		if i%2 == 0 {
			nibble = b & 0xF
		} else {
			nibble = b >> 4
		}
		if int(nibble) >= len(bcdPlusDigits) {
			return "", fmt.Errorf("bcd+ string: reserved nibble 0x%X at position %d", nibble, i)
		}
		out = append(out, bcdPlusDigits[nibble])
	}
	return string(out), nil
}

// decodeAscii6 unpacks 6-bit codes, four characters per three bytes,
// LSB-first. Code 0 maps to 0x20.
func decodeAscii6(data []byte, n int) (string, error) {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		bitOff := i * 6
		byteOff := bitOff / 8
		shift := uint(bitOff % 8)

		v := uint16(data[byteOff]) >> shift
		if shift > 2 && byteOff+1 < len(data) {
			v |= uint16(data[byteOff+1]) << (8 - shift)
		}
		out = append(out, byte(v&0x3F)+0x20)
	}
	return string(out), nil
}
