package client

import (
	"context"
	"errors"
	"testing"

	"github.com/tturner/ipmiq/internal/ipmi/catalog"
	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
	"github.com/tturner/ipmiq/internal/ipmi/sdr"
)

func sdrKeyForTest(owner, channel, num uint8) sdr.SensorKey {
	return sdr.SensorKey{OwnerID: owner, OwnerChannel: channel, SensorNumber: num}
}

// fakeConn scripts responses per (netfn, cmd) exchange.
type fakeConn struct {
	handler func(req protocol.Request) (protocol.Response, error)
	// requests records everything sent, for assertions.
	requests []protocol.Request
}

func (f *fakeConn) SendRecv(_ context.Context, req protocol.Request) (protocol.Response, error) {
	f.requests = append(f.requests, req)
	return f.handler(req)
}

func (f *fakeConn) Close() error { return nil }

// ok builds a matching success response.
func ok(req protocol.Request, body ...byte) (protocol.Response, error) {
	return protocol.Response{
		NetFn: req.NetFn.ResponseValue(),
		Cmd:   req.Cmd,
		Code:  protocol.CompletionOK,
		Data:  body,
	}, nil
}

// fail builds a matching non-success response.
func fail(req protocol.Request, code protocol.CompletionCode) (protocol.Response, error) {
	return protocol.Response{
		NetFn: req.NetFn.ResponseValue(),
		Cmd:   req.Cmd,
		Code:  code,
	}, nil
}

func TestExecute_CompletionError(t *testing.T) {
	conn := &fakeConn{handler: func(req protocol.Request) (protocol.Response, error) {
		return fail(req, protocol.CompletionNodeBusy)
	}}
	c := New(conn)

	_, err := c.Execute(context.Background(), catalog.GetDeviceID{})
	var ce *protocol.CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CompletionError", err)
	}
	if ce.Code != protocol.CompletionNodeBusy {
		t.Errorf("code = 0x%02X", uint8(ce.Code))
	}
}

func TestDeviceID(t *testing.T) {
	conn := &fakeConn{handler: func(req protocol.Request) (protocol.Response, error) {
		if req.NetFn != protocol.NetFnApp || req.Cmd != 0x01 {
			t.Fatalf("unexpected request (0x%02X, 0x%02X)", uint8(req.NetFn), req.Cmd)
		}
		return ok(req, 0x23, 0x81, 0x01, 0x54, 0x02, 0x87, 0x47, 0x4A, 0x00, 0x06, 0x0D)
	}}
	c := New(conn)

	id, err := c.DeviceID(context.Background())
	if err != nil {
		t.Fatalf("DeviceID: %v", err)
	}
	if id.DeviceID != 0x23 || id.FirmwareMinor != 54 || id.IPMIVersionMajor != 2 {
		t.Errorf("id = %+v", id)
	}
}

// sdrRecord frames a record payload with the 5-byte header.
func sdrRecord(id uint16, recordType uint8, payload []byte) []byte {
	out := []byte{uint8(id), uint8(id >> 8), 0x51, recordType, uint8(len(payload))}
	return append(out, payload...)
}

// sdrChunkResponse builds a Get SDR success body: next id then record.
func sdrChunkResponse(next uint16, record []byte) []byte {
	return append([]byte{uint8(next), uint8(next >> 8)}, record...)
}

func TestWalkSDRs(t *testing.T) {
	// Record 1 is fine (unknown type keeps raw payload); record 2 has a
	// reserved sensor number and is recoverable; record 3 ends the walk.
	badFull := make([]byte, 43)
	badFull[2] = 0xFF // reserved sensor number

	records := map[uint16]struct {
		next uint16
		data []byte
	}{
		0x0000: {0x0001, sdrRecord(0x0000, 0xC0, []byte{1, 2, 3})},
		0x0001: {0x0002, sdrRecord(0x0001, 0x01, badFull)},
		0x0002: {0xFFFF, sdrRecord(0x0002, 0xC0, []byte{4})},
	}

	conn := &fakeConn{handler: func(req protocol.Request) (protocol.Response, error) {
		id := codec.Uint16(req.Data[2:4])
		r, found := records[id]
		if !found {
			return fail(req, protocol.CompletionDatapointNotPresent)
		}
		return ok(req, sdrChunkResponse(r.next, r.data)...)
	}}
	c := New(conn)

	var good, bad int
	err := c.WalkSDRs(context.Background(), func(r SDRResult) bool {
		if r.Err != nil {
			bad++
		} else {
			good++
		}
		return true
	})
	if err != nil {
		t.Fatalf("WalkSDRs: %v", err)
	}
	if good != 2 || bad != 1 {
		t.Errorf("good=%d bad=%d, want 2/1", good, bad)
	}
}

func TestWalkSDRs_SelfPointingID(t *testing.T) {
	conn := &fakeConn{handler: func(req protocol.Request) (protocol.Response, error) {
		return ok(req, sdrChunkResponse(0x0000, sdrRecord(0x0000, 0xC0, []byte{1}))...)
	}}
	c := New(conn)
	err := c.WalkSDRs(context.Background(), func(SDRResult) bool { return true })
	if err == nil {
		t.Error("expected error for non-advancing record id")
	}
}

func TestFetchSDRChunked(t *testing.T) {
	record := sdrRecord(0x0005, 0xC0, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x11, 0x22})
	reservation := uint16(0x4242)
	cancelled := false

	conn := &fakeConn{handler: func(req protocol.Request) (protocol.Response, error) {
		switch {
		case req.NetFn == protocol.NetFnStorage && req.Cmd == 0x22: // reserve
			return ok(req, uint8(reservation), uint8(reservation>>8))
		case req.NetFn == protocol.NetFnStorage && req.Cmd == 0x23: // get sdr
			resID := codec.Uint16(req.Data[0:2])
			offset := int(req.Data[4])
			length := int(req.Data[5])

			if resID == 0 {
				// Whole-record read: refuse, forcing chunked mode.
				return fail(req, protocol.CompletionCannotReturnBytes)
			}
			// Cancel the first reservation once mid-record.
			if !cancelled && offset > 0 {
				cancelled = true
				return fail(req, protocol.CompletionReservationCancelled)
			}
			// The device limits every partial read to 6 bytes.
			if length > 6 {
				length = 6
			}
			end := offset + length
			if end > len(record) {
				end = len(record)
			}
			return ok(req, sdrChunkResponse(0x0006, record[offset:end])...)
		}
		t.Fatalf("unexpected request (0x%02X, 0x%02X)", uint8(req.NetFn), req.Cmd)
		return protocol.Response{}, nil
	}}
	c := New(conn)
	c.log.SetLevel(0)

	next, raw, err := c.fetchSDR(context.Background(), 0x0005)
	if err != nil {
		t.Fatalf("fetchSDR: %v", err)
	}
	if next != 0x0006 {
		t.Errorf("next = 0x%04X", next)
	}
	if len(raw) != len(record) {
		t.Fatalf("raw = %d bytes, want %d", len(raw), len(record))
	}
	for i := range raw {
		if raw[i] != record[i] {
			t.Fatalf("raw[%d] = 0x%02X, want 0x%02X", i, raw[i], record[i])
		}
	}
	if !cancelled {
		t.Error("test should have exercised a reservation cancellation")
	}
}

func TestFetchSDRChunked_RepeatedCancellation(t *testing.T) {
	conn := &fakeConn{handler: func(req protocol.Request) (protocol.Response, error) {
		switch req.Cmd {
		case 0x22:
			return ok(req, 0x01, 0x00)
		case 0x23:
			if codec.Uint16(req.Data[0:2]) == 0 {
				return fail(req, protocol.CompletionCannotReturnBytes)
			}
			return fail(req, protocol.CompletionReservationCancelled)
		}
		return fail(req, protocol.CompletionInvalidCommand)
	}}
	c := New(conn)
	c.log.SetLevel(0)

	_, _, err := c.fetchSDR(context.Background(), 0x0001)
	if err == nil {
		t.Fatal("expected fatal error after repeated cancellations")
	}
	var ce *protocol.CompletionError
	if !errors.As(err, &ce) || ce.Code != protocol.CompletionReservationCancelled {
		t.Errorf("err = %v, want wrapped reservation-cancelled", err)
	}
}

func selRecordBytes(id uint16) []byte {
	data := make([]byte, 16)
	data[0], data[1] = uint8(id), uint8(id>>8)
	data[2] = 0x02
	data[3] = 0x60 // timestamp low byte, absolute range
	data[6] = 0x60
	return data
}

func TestWalkSEL(t *testing.T) {
	entries := map[uint16]struct {
		next uint16
		data []byte
	}{
		0x0000: {0x0001, selRecordBytes(0x0000)},
		0x0001: {0xFFFF, selRecordBytes(0x0001)},
	}
	conn := &fakeConn{handler: func(req protocol.Request) (protocol.Response, error) {
		id := codec.Uint16(req.Data[2:4])
		e, found := entries[id]
		if !found {
			return fail(req, protocol.CompletionDatapointNotPresent)
		}
		return ok(req, append([]byte{uint8(e.next), uint8(e.next >> 8)}, e.data...)...)
	}}
	c := New(conn)

	got, recordErrs, err := c.SELEntries(context.Background())
	if err != nil {
		t.Fatalf("SELEntries: %v", err)
	}
	if len(recordErrs) != 0 {
		t.Errorf("record errors: %v", recordErrs)
	}
	if len(got) != 2 || got[0].RecordID != 0 || got[1].RecordID != 1 {
		t.Errorf("entries = %+v", got)
	}
}

func TestWalkSEL_EmptyLog(t *testing.T) {
	conn := &fakeConn{handler: func(req protocol.Request) (protocol.Response, error) {
		return fail(req, protocol.CompletionDatapointNotPresent)
	}}
	c := New(conn)

	entries, recordErrs, err := c.SELEntries(context.Background())
	if err != nil || len(entries) != 0 || len(recordErrs) != 0 {
		t.Errorf("empty log: %v %v %v", entries, recordErrs, err)
	}
}

func TestReadSensorRaw_BridgedTarget(t *testing.T) {
	conn := &fakeConn{handler: func(req protocol.Request) (protocol.Response, error) {
		return ok(req, 0x64, 0xC0)
	}}
	c := New(conn)

	// Owner 0x39 (raw slave 0x72) on channel 7 is not the BMC.
	key := sdrKeyForTest(0x39, 7, 0x30)
	reading, err := c.ReadSensorRaw(context.Background(), key)
	if err != nil {
		t.Fatalf("ReadSensorRaw: %v", err)
	}
	if reading.Raw != 0x64 {
		t.Errorf("raw = 0x%02X", reading.Raw)
	}

	req := conn.requests[0]
	if req.Target.SlaveAddress != 0x72 || req.Target.Channel != 7 {
		t.Errorf("target = %+v, want bridged 0x72 ch 7", req.Target)
	}
	if !req.Bridged(c.BMCAddress()) {
		t.Error("request should be flagged as bridged")
	}

	// A BMC-owned sensor must target the system interface.
	conn.requests = nil
	if _, err := c.ReadSensorRaw(context.Background(), sdrKeyForTest(0x10, 0, 0x01)); err != nil {
		t.Fatal(err)
	}
	if req := conn.requests[0]; req.Bridged(c.BMCAddress()) {
		t.Errorf("BMC-owned sensor should not bridge: %+v", req.Target)
	}
}

func TestClearSEL(t *testing.T) {
	step := 0
	conn := &fakeConn{handler: func(req protocol.Request) (protocol.Response, error) {
		switch req.Cmd {
		case 0x42:
			return ok(req, 0x34, 0x12)
		case 0x47:
			step++
			if req.Data[0] != 0x34 || req.Data[1] != 0x12 {
				t.Errorf("reservation not echoed: % X", req.Data[:2])
			}
			if step == 1 {
				if req.Data[5] != 0xAA {
					t.Error("first clear must initiate erasure")
				}
				return ok(req, 0x00) // in progress
			}
			if req.Data[5] != 0x00 {
				t.Error("poll must not re-initiate erasure")
			}
			return ok(req, 0x01) // complete
		}
		return fail(req, protocol.CompletionInvalidCommand)
	}}
	c := New(conn)

	if err := c.ClearSEL(context.Background()); err != nil {
		t.Fatalf("ClearSEL: %v", err)
	}
	if step != 2 {
		t.Errorf("clear exchanges = %d, want 2", step)
	}
}
