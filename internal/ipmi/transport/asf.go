package transport

// ASF Presence Ping, used to discover RMCP endpoints before any session
// exists.

import (
	"context"
	"fmt"
	"time"

	"github.com/tturner/ipmiq/internal/ipmi/codec"
)

const (
	asfIANA uint32 = 4542

	asfTypePing = 0x80
	asfTypePong = 0x40
)

// Pong is a parsed ASF Presence Pong.
type Pong struct {
	IANA              uint32
	OEMDefined        uint32
	SupportsIPMI      bool
	SupportsASFv1     bool
	SecurityExtensions bool
}

// BuildPing assembles an ASF Presence Ping datagram, RMCP header included.
// The ASF IANA number travels big-endian, unlike IPMI fields.
func BuildPing(tag uint8) []byte {
	body := []byte{
		0x00, 0x00, 0x11, 0xBE, // IANA 4542
		asfTypePing, tag, 0x00, 0x00,
	}
	return FrameRMCP(RMCPClassASF, body)
}

// ParsePong decodes a Presence Pong datagram (RMCP header included).
func ParsePong(packet []byte) (Pong, error) {
	class, body, err := UnframeRMCP(packet)
	if err != nil {
		return Pong{}, err
	}
	if class != RMCPClassASF {
		return Pong{}, fmt.Errorf("asf: unexpected rmcp class 0x%02X", class)
	}
	if len(body) < 16 {
		return Pong{}, fmt.Errorf("asf: pong too short: %d bytes", len(body))
	}
	if body[4] != asfTypePong {
		return Pong{}, fmt.Errorf("asf: unexpected message type 0x%02X", body[4])
	}

	data := body[8:]
	return Pong{
		IANA:               uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]),
		OEMDefined:         codec.Uint32(data[4:8]),
		SupportsIPMI:       data[8]&0x80 != 0,
		SupportsASFv1:      data[8]&0x01 != 0,
		SecurityExtensions: len(data) > 9 && data[9]&0x80 != 0,
	}, nil
}

// Ping sends a Presence Ping and waits for the Pong.
func Ping(ctx context.Context, udp *UDP, timeout time.Duration) (Pong, error) {
	if err := udp.Send(ctx, BuildPing(0x01)); err != nil {
		return Pong{}, err
	}
	packet, err := udp.Recv(ctx, timeout)
	if err != nil {
		return Pong{}, err
	}
	return ParsePong(packet)
}
