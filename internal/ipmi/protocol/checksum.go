package protocol

// IPMB framing used when IPMI messages travel inside a session payload
// (LAN) or a Send Message envelope. Each frame carries two two's-complement
// checksums: one over the connection header, one over the rest.

// Checksum returns the two's-complement checksum of data: the byte that
// makes the modulo-256 sum of data plus the checksum zero.
func Checksum(data ...byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return -sum
}

// FrameIPMB wraps a request in IPMB framing:
// rsAddr, netFn<<2|rsLUN, ck1, rqAddr, rqSeq<<2|rqLUN, cmd, data, ck2.
func FrameIPMB(rsAddr uint8, netFn uint8, rsLUN LUN, rqAddr uint8, rqSeq uint8, rqLUN LUN, cmd uint8, data []byte) []byte {
	netFnLun := netFn<<2 | rsLUN.Value()
	out := make([]byte, 0, 7+len(data))
	out = append(out, rsAddr, netFnLun, Checksum(rsAddr, netFnLun))

	reqSeqLun := rqSeq<<2 | rqLUN.Value()
	out = append(out, rqAddr, reqSeqLun, cmd)
	out = append(out, data...)

	sum := rqAddr + reqSeqLun + cmd
	for _, b := range data {
		sum += b
	}
	return append(out, -sum)
}

// IPMBFrame is a de-framed IPMB message.
type IPMBFrame struct {
	RsAddr uint8
	NetFn  uint8
	RsLUN  LUN
	RqAddr uint8
	RqSeq  uint8
	RqLUN  LUN
	Cmd    uint8
	Data   []byte
}

// UnframeIPMB validates both checksums and splits an IPMB frame.
func UnframeIPMB(data []byte) (IPMBFrame, error) {
	if len(data) < 7 {
		return IPMBFrame{}, Parsef("ipmb frame too short: %d bytes", len(data))
	}

	if Checksum(data[0], data[1]) != data[2] {
		return IPMBFrame{}, Parsef("ipmb header checksum mismatch")
	}

	var sum uint8
	for _, b := range data[3 : len(data)-1] {
		sum += b
	}
	if -sum != data[len(data)-1] {
		return IPMBFrame{}, Parsef("ipmb payload checksum mismatch")
	}

	return IPMBFrame{
		RsAddr: data[0],
		NetFn:  data[1] >> 2,
		RsLUN:  LUN(data[1] & 0x3),
		RqAddr: data[3],
		RqSeq:  data[4] >> 2,
		RqLUN:  LUN(data[4] & 0x3),
		Cmd:    data[5],
		Data:   data[6 : len(data)-1],
	}, nil
}
