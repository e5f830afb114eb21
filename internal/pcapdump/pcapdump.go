// Package pcapdump decodes RMCP/IPMI traffic from packet captures for
// offline inspection: session setup exchanges, payload types, and auth
// modes, without any key material.
package pcapdump

import (
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/tturner/ipmiq/internal/ipmi/codec"
)

// rmcpPort is the well-known RMCP UDP port.
const rmcpPort = 623

// Summary is one decoded RMCP datagram.
type Summary struct {
	Timestamp time.Time
	Src       string
	Dst       string
	// Kind is "asf", "ipmi-1.5", or "rmcp+".
	Kind      string
	Detail    string
	SessionID uint32
	Sequence  uint32
	Encrypted bool
}

func (s Summary) String() string {
	enc := ""
	if s.Encrypted {
		enc = " encrypted"
	}
	return fmt.Sprintf("%s %s -> %s %s %s%s",
		s.Timestamp.Format("15:04:05.000000"), s.Src, s.Dst, s.Kind, s.Detail, enc)
}

// ReadFile extracts every RMCP datagram from a pcap file.
func ReadFile(path string) ([]Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read capture %s: %w", path, err)
	}

	var out []Summary
	for {
		data, ci, err := r.ReadPacketData()
		if err != nil {
			// pcapgo returns io.EOF at the end of the file.
			break
		}

		packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp := udpLayer.(*layers.UDP)
		if udp.SrcPort != rmcpPort && udp.DstPort != rmcpPort {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}

		summary, err := Classify(udp.Payload)
		if err != nil {
			continue
		}
		summary.Timestamp = ci.Timestamp
		if netLayer := packet.NetworkLayer(); netLayer != nil {
			flow := netLayer.NetworkFlow()
			summary.Src = fmt.Sprintf("%s:%d", flow.Src(), udp.SrcPort)
			summary.Dst = fmt.Sprintf("%s:%d", flow.Dst(), udp.DstPort)
		}
		out = append(out, summary)
	}
	return out, nil
}

var payloadTypeNames = map[uint8]string{
	0x00: "ipmi message",
	0x01: "sol",
	0x10: "open session request",
	0x11: "open session response",
	0x12: "rakp1",
	0x13: "rakp2",
	0x14: "rakp3",
	0x15: "rakp4",
}

var authTypeNames = map[uint8]string{
	0x00: "none",
	0x01: "md2",
	0x02: "md5",
	0x04: "password",
	0x05: "oem",
}

// Classify decodes one RMCP datagram payload (starting at the RMCP
// header) without any session keys.
func Classify(data []byte) (Summary, error) {
	if len(data) < 4 {
		return Summary{}, fmt.Errorf("short rmcp datagram: %d bytes", len(data))
	}
	if data[0] != 0x06 {
		return Summary{}, fmt.Errorf("not rmcp version 1: 0x%02X", data[0])
	}

	class := data[3] & 0x7F
	body := data[4:]

	switch class {
	case 0x06:
		return classifyASF(body)
	case 0x07:
		return classifyIPMI(body)
	}
	return Summary{}, fmt.Errorf("unknown rmcp class 0x%02X", class)
}

func classifyASF(body []byte) (Summary, error) {
	if len(body) < 8 {
		return Summary{}, fmt.Errorf("short asf message")
	}
	s := Summary{Kind: "asf"}
	switch body[4] {
	case 0x80:
		s.Detail = "presence ping"
	case 0x40:
		s.Detail = "presence pong"
	default:
		s.Detail = fmt.Sprintf("message type 0x%02X", body[4])
	}
	return s, nil
}

func classifyIPMI(body []byte) (Summary, error) {
	if len(body) < 10 {
		return Summary{}, fmt.Errorf("short ipmi session header")
	}

	authType := body[0] & 0xF
	if authType == 0x6 {
		// RMCP+ header: payload type, session id, sequence.
		s := Summary{
			Kind:      "rmcp+",
			Encrypted: body[1]&0x80 != 0,
			SessionID: codec.Uint32(body[2:6]),
			Sequence:  codec.Uint32(body[6:10]),
		}
		pt := body[1] & 0x3F
		if name, ok := payloadTypeNames[pt]; ok {
			s.Detail = name
		} else {
			s.Detail = fmt.Sprintf("payload type 0x%02X", pt)
		}
		if body[1]&0x40 != 0 {
			s.Detail += " authenticated"
		}
		return s, nil
	}

	s := Summary{
		Kind:      "ipmi-1.5",
		Sequence:  codec.Uint32(body[1:5]),
		SessionID: codec.Uint32(body[5:9]),
	}
	if name, ok := authTypeNames[authType]; ok {
		s.Detail = "auth " + name
	} else {
		s.Detail = fmt.Sprintf("auth 0x%02X", authType)
	}
	return s, nil
}
