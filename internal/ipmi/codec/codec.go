package codec

// Byte-level helpers for IPMI wire layouts. IPMI is little-endian within
// multi-byte words, so the helpers fix the byte order instead of taking it
// as a parameter.

import "encoding/binary"

// PutUint16 writes a uint16 to dst in IPMI (little-endian) byte order.
func PutUint16(dst []byte, value uint16) {
	binary.LittleEndian.PutUint16(dst, value)
}

// PutUint32 writes a uint32 to dst in IPMI byte order.
func PutUint32(dst []byte, value uint32) {
	binary.LittleEndian.PutUint32(dst, value)
}

// Uint16 reads a uint16 from src in IPMI byte order.
func Uint16(src []byte) uint16 {
	return binary.LittleEndian.Uint16(src)
}

// Uint32 reads a uint32 from src in IPMI byte order.
func Uint32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

// Uint24 reads a 3-byte little-endian value (manufacturer IDs, OEM IANA).
func Uint24(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16
}

// AppendUint16 appends a uint16 to dst in IPMI byte order.
func AppendUint16(dst []byte, value uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	return append(dst, buf[:]...)
}

// AppendUint32 appends a uint32 to dst in IPMI byte order.
func AppendUint32(dst []byte, value uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	return append(dst, buf[:]...)
}

// Bits extracts width bits of b starting at the given bit offset
// (0 = least significant).
func Bits(b uint8, offset, width uint) uint8 {
	return (b >> offset) & (1<<width - 1)
}

// Bit reports whether the bit at offset is set.
func Bit(b uint8, offset uint) bool {
	return b&(1<<offset) != 0
}

// SignExtend10 composes a 10-bit two's-complement value from its low byte
// and its two high bits, as packed in full SDR records (M, B). The sign
// comes from the composite 10-bit field, not the low byte.
func SignExtend10(low uint8, high2 uint8) int16 {
	v := uint16(low) | uint16(high2&0x3)<<8
	if v&0x200 != 0 {
		v |= 0xFC00
	}
	return int16(v)
}

// SignExtend4 sign-extends a 4-bit two's-complement nibble
// (Rexp/Bexp fields).
func SignExtend4(v uint8) int8 {
	v &= 0xF
	if v&0x8 != 0 {
		v |= 0xF0
	}
	return int8(v)
}

// BCDByte decodes one BCD byte (firmware minor revisions) to its decimal
// value: 0x42 -> 42.
func BCDByte(b uint8) uint8 {
	return (b>>4)*10 + b&0xF
}
