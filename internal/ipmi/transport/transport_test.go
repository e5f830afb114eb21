package transport

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/tturner/ipmiq/internal/ipmi/protocol"
	"github.com/tturner/ipmiq/internal/ipmi/session"
)

func TestFrameRMCP(t *testing.T) {
	packet := FrameRMCP(RMCPClassIPMI, []byte{0xAA, 0xBB})
	want := []byte{0x06, 0x00, 0xFF, 0x07, 0xAA, 0xBB}
	if !bytes.Equal(packet, want) {
		t.Errorf("packet = % X, want % X", packet, want)
	}

	class, body, err := UnframeRMCP(packet)
	if err != nil {
		t.Fatalf("UnframeRMCP: %v", err)
	}
	if class != RMCPClassIPMI || !bytes.Equal(body, []byte{0xAA, 0xBB}) {
		t.Errorf("class=0x%02X body=% X", class, body)
	}

	if _, _, err := UnframeRMCP([]byte{0x05, 0x00, 0xFF, 0x07}); err == nil {
		t.Error("expected error for wrong rmcp version")
	}
}

func TestBuildPing(t *testing.T) {
	packet := BuildPing(0x42)
	if packet[3] != RMCPClassASF {
		t.Errorf("class = 0x%02X", packet[3])
	}
	// IANA 4542 big-endian, then ping type and tag.
	if !bytes.Equal(packet[4:8], []byte{0x00, 0x00, 0x11, 0xBE}) {
		t.Errorf("iana = % X", packet[4:8])
	}
	if packet[8] != asfTypePing || packet[9] != 0x42 {
		t.Errorf("type/tag = % X", packet[8:10])
	}
}

func TestParsePong(t *testing.T) {
	body := []byte{
		0x00, 0x00, 0x11, 0xBE,
		asfTypePong, 0x42, 0x00, 0x10,
		0x00, 0x00, 0x11, 0xBE, // IANA
		0x00, 0x00, 0x00, 0x00, // OEM
		0x81,                   // IPMI + ASF 1.0
		0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	pong, err := ParsePong(FrameRMCP(RMCPClassASF, body))
	if err != nil {
		t.Fatalf("ParsePong: %v", err)
	}
	if !pong.SupportsIPMI || !pong.SupportsASFv1 {
		t.Errorf("pong = %+v", pong)
	}
	if pong.IANA != 4542 {
		t.Errorf("iana = %d", pong.IANA)
	}

	if _, err := ParsePong(FrameRMCP(RMCPClassIPMI, body)); err == nil {
		t.Error("expected error for wrong class")
	}
}

// fakeBMCServer answers sessionless IPMI-over-RMCP datagrams.
type fakeBMCServer struct {
	t      *testing.T
	conn   *net.UDPConn
	handle func(req protocol.Request) protocol.Response
}

func startFakeBMC(t *testing.T, handle func(protocol.Request) protocol.Response) *net.UDPAddr {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	s := &fakeBMCServer{t: t, conn: conn, handle: handle}
	go s.serve()
	return conn.LocalAddr().(*net.UDPAddr)
}

func (s *fakeBMCServer) serve() {
	buf := make([]byte, 4096)
	for {
		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		_, body, err := UnframeRMCP(buf[:n])
		if err != nil {
			continue
		}
		payload, err := session.None{}.Unwrap(body)
		if err != nil {
			continue
		}
		frame, err := protocol.UnframeIPMB(payload)
		if err != nil {
			continue
		}

		resp := s.handle(protocol.Request{
			NetFn: protocol.NetFn(frame.NetFn),
			Cmd:   frame.Cmd,
			Data:  frame.Data,
		})

		respPayload := protocol.FrameIPMB(
			frame.RqAddr, resp.NetFn, frame.RqLUN,
			frame.RsAddr, frame.RqSeq, frame.RsLUN,
			resp.Cmd, append([]byte{uint8(resp.Code)}, resp.Data...),
		)
		wrapped, err := (session.None{}).Wrap(respPayload)
		if err != nil {
			continue
		}
		s.conn.WriteToUDP(FrameRMCP(RMCPClassIPMI, wrapped), peer)
	}
}

func TestLANExchange(t *testing.T) {
	addr := startFakeBMC(t, func(req protocol.Request) protocol.Response {
		if req.NetFn.RequestValue() != 0x06 || req.Cmd != 0x01 {
			t.Errorf("unexpected request (0x%02X, 0x%02X)", uint8(req.NetFn), req.Cmd)
		}
		return protocol.Response{
			NetFn: 0x07, Cmd: 0x01, Code: protocol.CompletionOK,
			Data: []byte{0x23, 0x01, 0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		}
	})

	lan, err := DialLAN(addr.String())
	if err != nil {
		t.Fatal(err)
	}
	defer lan.Close()
	lan.SetTimeout(2 * time.Second)

	resp, err := lan.SendRecv(context.Background(), protocol.NewRequest(protocol.NetFnApp, 0x01, nil))
	if err != nil {
		t.Fatalf("SendRecv: %v", err)
	}
	if !resp.Code.IsSuccess() || resp.Data[0] != 0x23 {
		t.Errorf("response = %+v", resp)
	}
}

func TestLANExchange_Bridged(t *testing.T) {
	addr := startFakeBMC(t, func(req protocol.Request) protocol.Response {
		if req.NetFn.RequestValue() != 0x06 || req.Cmd != 0x34 {
			t.Errorf("bridged read must arrive as Send Message, got (0x%02X, 0x%02X)",
				uint8(req.NetFn), req.Cmd)
		}
		// Channel byte, then the encapsulated IPMB request.
		inner, err := protocol.UnframeIPMB(req.Data[1:])
		if err != nil {
			t.Errorf("inner frame: %v", err)
		}
		if inner.RsAddr != 0x72 || inner.Cmd != 0x2D {
			t.Errorf("inner frame = %+v", inner)
		}

		// Reply carries the bridged response one layer deep.
		bridged := protocol.FrameIPMB(
			inner.RqAddr, inner.NetFn|1, inner.RqLUN,
			inner.RsAddr, inner.RqSeq, inner.RsLUN,
			inner.Cmd, []byte{0x00, 0x7A, 0xC0},
		)
		return protocol.Response{NetFn: 0x07, Cmd: 0x34, Code: protocol.CompletionOK, Data: bridged}
	})

	lan, err := DialLAN(addr.String())
	if err != nil {
		t.Fatal(err)
	}
	defer lan.Close()
	lan.SetTimeout(2 * time.Second)

	req := protocol.NewRequest(protocol.NetFnSensor, 0x2D, []byte{0x30})
	req.Target = protocol.Address{Channel: 0x7, SlaveAddress: 0x72}

	resp, err := lan.SendRecv(context.Background(), req)
	if err != nil {
		t.Fatalf("SendRecv: %v", err)
	}
	if resp.Cmd != 0x2D || !resp.Code.IsSuccess() {
		t.Errorf("response = %+v", resp)
	}
	if !bytes.Equal(resp.Data, []byte{0x7A, 0xC0}) {
		t.Errorf("data = % X", resp.Data)
	}
}

func TestUDPRecv_IgnoresStrangers(t *testing.T) {
	// A datagram from a different source address must not surface.
	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Close()

	udp, err := DialUDP(peer.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer udp.Close()

	if _, err := udp.Recv(context.Background(), 200*time.Millisecond); err == nil {
		t.Error("expected timeout with no traffic")
	}
}
