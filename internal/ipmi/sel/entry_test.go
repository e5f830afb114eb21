package sel

import (
	"testing"
	"time"
)

func TestParseSystemEvent(t *testing.T) {
	data := []byte{
		0x0A, 0x00, // record id 10
		0x02,                   // system event
		0x00, 0x00, 0x00, 0x60, // timestamp 0x60000000
		0x20, 0x00, // generator: BMC
		0x04,       // event message revision
		0x01,       // temperature
		0x30,       // sensor number
		0x81,       // deassertion, event type 0x01
		0x52, 0xFF, 0xFF,
	}
	e, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if e.RecordID != 10 || e.Type != 0x02 || e.System == nil {
		t.Fatalf("entry = %+v", e)
	}
	ev := e.System
	if ev.SensorType != 0x01 || ev.SensorNum != 0x30 {
		t.Errorf("sensor fields = %+v", ev)
	}
	if ev.Direction != EventDeasserted || ev.EventType != 0x01 {
		t.Errorf("direction/type = %v/0x%02X", ev.Direction, ev.EventType)
	}
	if ev.EventData != [3]uint8{0x52, 0xFF, 0xFF} {
		t.Errorf("event data = % X", ev.EventData)
	}

	ts, ok := ev.Time()
	if !ok {
		t.Fatal("timestamp should be absolute")
	}
	if ts != time.Unix(0x60000000, 0).UTC() {
		t.Errorf("time = %v", ts)
	}
}

func TestParseSystemEvent_RelativeTimestamp(t *testing.T) {
	data := make([]byte, 16)
	data[2] = 0x02
	data[3] = 0x10 // timestamp 0x10: seconds since BMC start
	e, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := e.System.Time(); ok {
		t.Error("pre-init timestamp is not absolute")
	}
}

func TestParseOEMRecords(t *testing.T) {
	t.Run("timestamped", func(t *testing.T) {
		data := make([]byte, 16)
		data[0] = 0x01
		data[2] = 0xC5
		data[7], data[8], data[9] = 0x47, 0x4A, 0x00
		data[10] = 0xAB
		e, err := Parse(data)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if e.OEMTimestamped == nil {
			t.Fatal("expected OEM timestamped record")
		}
		if e.OEMTimestamped.ManufacturerID != 0x4A47 {
			t.Errorf("manufacturer = 0x%X", e.OEMTimestamped.ManufacturerID)
		}
		if e.OEMTimestamped.Data[0] != 0xAB {
			t.Errorf("data = % X", e.OEMTimestamped.Data)
		}
	})

	t.Run("non-timestamped", func(t *testing.T) {
		data := make([]byte, 16)
		data[2] = 0xE0
		data[3] = 0x11
		e, err := Parse(data)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if e.OEM == nil || e.OEM.Data[0] != 0x11 {
			t.Fatalf("entry = %+v", e)
		}
	})
}

func TestParse_ReservedType(t *testing.T) {
	data := make([]byte, 16)
	data[2] = 0x55
	if _, err := Parse(data); err == nil {
		t.Error("expected error for reserved record type")
	}
}

func TestParse_Short(t *testing.T) {
	if _, err := Parse(make([]byte, 15)); err == nil {
		t.Error("expected error for short record")
	}
}
