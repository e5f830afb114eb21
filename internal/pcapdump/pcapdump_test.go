package pcapdump

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

func buildRMCPPacket(t *testing.T, srcPort, dstPort uint16, payload []byte) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(srcPort),
		DstPort: layers.UDPPort(dstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatal(err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeCapture(t *testing.T, packets ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rmcp.pcap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatal(err)
	}
	ts := time.Unix(1700000000, 0)
	for i, p := range packets {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(p),
			Length:        len(p),
		}
		if err := w.WritePacket(ci, p); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestClassify(t *testing.T) {
	t.Run("asf ping", func(t *testing.T) {
		payload := []byte{0x06, 0x00, 0xFF, 0x06, 0x00, 0x00, 0x11, 0xBE, 0x80, 0x01, 0x00, 0x00}
		s, err := Classify(payload)
		if err != nil {
			t.Fatal(err)
		}
		if s.Kind != "asf" || s.Detail != "presence ping" {
			t.Errorf("summary = %+v", s)
		}
	})

	t.Run("v1.5 md5", func(t *testing.T) {
		payload := []byte{0x06, 0x00, 0xFF, 0x07, 0x02,
			0x05, 0x00, 0x00, 0x00,
			0x78, 0x56, 0x34, 0x12,
			0x00,
		}
		s, err := Classify(payload)
		if err != nil {
			t.Fatal(err)
		}
		if s.Kind != "ipmi-1.5" || s.Detail != "auth md5" {
			t.Errorf("summary = %+v", s)
		}
		if s.Sequence != 5 || s.SessionID != 0x12345678 {
			t.Errorf("summary = %+v", s)
		}
	})

	t.Run("rmcp+ rakp1", func(t *testing.T) {
		payload := []byte{0x06, 0x00, 0xFF, 0x07, 0x06, 0x12,
			0x00, 0x00, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x00,
			0x00, 0x00,
		}
		s, err := Classify(payload)
		if err != nil {
			t.Fatal(err)
		}
		if s.Kind != "rmcp+" || s.Detail != "rakp1" || s.Encrypted {
			t.Errorf("summary = %+v", s)
		}
	})

	t.Run("rmcp+ encrypted ipmi", func(t *testing.T) {
		payload := []byte{0x06, 0x00, 0xFF, 0x07, 0x06, 0xC0,
			0x01, 0x00, 0x00, 0x02,
			0x09, 0x00, 0x00, 0x00,
			0x20, 0x00,
		}
		s, err := Classify(payload)
		if err != nil {
			t.Fatal(err)
		}
		if !s.Encrypted || s.Detail != "ipmi message authenticated" {
			t.Errorf("summary = %+v", s)
		}
		if s.SessionID != 0x02000001 || s.Sequence != 9 {
			t.Errorf("summary = %+v", s)
		}
	})

	t.Run("rejects non-rmcp", func(t *testing.T) {
		if _, err := Classify([]byte{0x01, 0x02, 0x03, 0x04, 0x05}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestReadFile(t *testing.T) {
	ping := []byte{0x06, 0x00, 0xFF, 0x06, 0x00, 0x00, 0x11, 0xBE, 0x80, 0x01, 0x00, 0x00}
	v15 := []byte{0x06, 0x00, 0xFF, 0x07, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

	path := writeCapture(t,
		buildRMCPPacket(t, 50000, 623, ping),
		buildRMCPPacket(t, 623, 50000, v15),
		buildRMCPPacket(t, 50000, 80, ping), // not RMCP port, skipped
	)

	summaries, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	if summaries[0].Kind != "asf" || summaries[1].Kind != "ipmi-1.5" {
		t.Errorf("kinds = %s, %s", summaries[0].Kind, summaries[1].Kind)
	}
	if summaries[0].Src != "10.0.0.1:50000" || summaries[0].Dst != "10.0.0.2:623" {
		t.Errorf("flow = %s -> %s", summaries[0].Src, summaries[0].Dst)
	}
}
