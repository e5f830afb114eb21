// Package sel decodes System Event Log records. Fetching is left to the
// client; every record is 16 bytes on the wire.
package sel

import (
	"fmt"
	"time"

	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// RecordLength is the fixed SEL record size.
const RecordLength = 16

// Record id sentinels.
const (
	FirstEntry uint16 = 0x0000
	LastEntry  uint16 = 0xFFFF
)

// EventDirection distinguishes assertions from deassertions.
type EventDirection uint8

const (
	EventAsserted   EventDirection = 0
	EventDeasserted EventDirection = 1
)

func (d EventDirection) String() string {
	if d == EventDeasserted {
		return "deasserted"
	}
	return "asserted"
}

// Entry is one parsed SEL record. Exactly one of System, OEMTimestamped,
// OEM is non-nil depending on the record type range.
type Entry struct {
	RecordID uint16
	Type     uint8

	System         *SystemEvent
	OEMTimestamped *OEMTimestampedEvent
	OEM            *OEMEvent
}

// SystemEvent is a type 0x02 record.
type SystemEvent struct {
	Timestamp   uint32
	GeneratorID uint16
	EvMRevision uint8
	SensorType  uint8
	SensorNum   uint8
	Direction   EventDirection
	EventType   uint8
	EventData   [3]uint8
}

// Time converts the 32-bit timestamp to wall time. Timestamps below
// 0x20000000 count seconds since BMC start rather than an epoch.
func (e *SystemEvent) Time() (time.Time, bool) {
	if e.Timestamp < 0x20000000 {
		return time.Time{}, false
	}
	return time.Unix(int64(e.Timestamp), 0).UTC(), true
}

// OEMTimestampedEvent covers record types 0xC0..0xDF.
type OEMTimestampedEvent struct {
	Timestamp      uint32
	ManufacturerID uint32
	Data           [6]uint8
}

// OEMEvent covers record types 0xE0..0xFF.
type OEMEvent struct {
	Data [13]uint8
}

// Parse decodes one 16-byte SEL record.
func Parse(data []byte) (Entry, error) {
	if len(data) < RecordLength {
		return Entry{}, protocol.Parsef("sel record needs %d bytes, have %d", RecordLength, len(data))
	}

	e := Entry{
		RecordID: codec.Uint16(data[0:2]),
		Type:     data[2],
	}

	switch {
	case e.Type == 0x02:
		ev := &SystemEvent{
			Timestamp:   codec.Uint32(data[3:7]),
			GeneratorID: codec.Uint16(data[7:9]),
			EvMRevision: data[9],
			SensorType:  data[10],
			SensorNum:   data[11],
			Direction:   EventDirection(data[12] >> 7),
			EventType:   data[12] & 0x7F,
			EventData:   [3]uint8{data[13], data[14], data[15]},
		}
		e.System = ev
	case e.Type >= 0xC0 && e.Type <= 0xDF:
		ev := &OEMTimestampedEvent{
			Timestamp:      codec.Uint32(data[3:7]),
			ManufacturerID: codec.Uint24(data[7:10]),
		}
		copy(ev.Data[:], data[10:16])
		e.OEMTimestamped = ev
	case e.Type >= 0xE0:
		ev := &OEMEvent{}
		copy(ev.Data[:], data[3:16])
		e.OEM = ev
	default:
		return Entry{}, protocol.Parsef("sel record 0x%04X: reserved record type 0x%02X", e.RecordID, e.Type)
	}

	return e, nil
}

// Describe renders a short human-readable summary of the entry.
func (e Entry) Describe() string {
	switch {
	case e.System != nil:
		return fmt.Sprintf("sensor type 0x%02X num 0x%02X %s (event type 0x%02X, data % X)",
			e.System.SensorType, e.System.SensorNum, e.System.Direction,
			e.System.EventType, e.System.EventData)
	case e.OEMTimestamped != nil:
		return fmt.Sprintf("OEM event, manufacturer 0x%06X, data % X",
			e.OEMTimestamped.ManufacturerID, e.OEMTimestamped.Data)
	case e.OEM != nil:
		return fmt.Sprintf("OEM event, data % X", e.OEM.Data)
	}
	return "empty entry"
}
