package transport

// RMCP framing and the UDP socket that carries it. The session layer owns
// everything after the 4-byte RMCP header; this file only adds and strips
// the header and moves datagrams.

import (
	"context"
	"fmt"
	"net"
	"time"
)

// RMCP header fields.
const (
	rmcpVersion1 = 0x06
	// Sequence 0xFF marks messages that expect no RMCP-level ack.
	rmcpNoAckSeq = 0xFF

	RMCPClassASF  = 0x06
	RMCPClassIPMI = 0x07

	// DefaultPort is the RMCP well-known UDP port.
	DefaultPort = 623
)

const rmcpHeaderLen = 4

// FrameRMCP prepends the RMCP header for the given class.
func FrameRMCP(class uint8, body []byte) []byte {
	out := make([]byte, 0, rmcpHeaderLen+len(body))
	out = append(out, rmcpVersion1, 0x00, rmcpNoAckSeq, class)
	return append(out, body...)
}

// UnframeRMCP validates the RMCP header and returns (class, body).
func UnframeRMCP(packet []byte) (uint8, []byte, error) {
	if len(packet) < rmcpHeaderLen {
		return 0, nil, fmt.Errorf("rmcp packet too short: %d bytes", len(packet))
	}
	if packet[0] != rmcpVersion1 {
		return 0, nil, fmt.Errorf("unsupported rmcp version 0x%02X", packet[0])
	}
	return packet[3], packet[4:], nil
}

// UDP is a datagram channel to one BMC. It implements the send/recv
// halves used by the LAN connection; retransmission policy stays with the
// caller.
type UDP struct {
	conn *net.UDPConn
	addr *net.UDPAddr
}

// DialUDP binds a local socket for traffic to addr ("host" or
// "host:port"; the RMCP port is assumed when missing).
func DialUDP(addr string) (*UDP, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, fmt.Sprintf("%d", DefaultPort))
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("bind udp socket: %w", err)
	}
	return &UDP{conn: conn, addr: udpAddr}, nil
}

// Send transmits one datagram.
func (u *UDP) Send(ctx context.Context, data []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := u.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := u.conn.WriteToUDP(data, u.addr); err != nil {
		return fmt.Errorf("send to %s: %w", u.addr, err)
	}
	return nil
}

// Recv blocks for one datagram from the peer, up to the deadline.
func (u *UDP) Recv(ctx context.Context, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := u.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	buf := make([]byte, 4096)
	for {
		n, from, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			return nil, fmt.Errorf("recv from %s: %w", u.addr, err)
		}
		// Datagrams from other hosts are not ours to interpret.
		if !from.IP.Equal(u.addr.IP) {
			continue
		}
		return append([]byte(nil), buf[:n]...), nil
	}
}

// Close releases the socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}

// RemoteAddr returns the peer address.
func (u *UDP) RemoteAddr() *net.UDPAddr {
	return u.addr
}
