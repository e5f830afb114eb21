// Package sdr decodes Sensor Data Records. Parsing is sans-I/O: callers
// hand in the raw record bytes fetched via the Get SDR commands.
package sdr

import (
	"errors"
	"fmt"

	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// ErrStructural marks record-framing failures (truncated header, length
// mismatch) that invalidate the whole iteration, as opposed to per-record
// content errors that only lose one record.
var ErrStructural = errors.New("sdr: structural framing error")

// RecordType discriminates the SDR payload layout.
type RecordType uint8

const (
	TypeFullSensor        RecordType = 0x01
	TypeCompactSensor     RecordType = 0x02
	TypeEventOnly         RecordType = 0x03
	TypeEntityAssociation RecordType = 0x08
	TypeGenericLocator    RecordType = 0x10
	TypeFRULocator        RecordType = 0x11
	TypeMCLocator         RecordType = 0x12
)

func (t RecordType) String() string {
	switch t {
	case TypeFullSensor:
		return "full sensor"
	case TypeCompactSensor:
		return "compact sensor"
	case TypeEventOnly:
		return "event-only sensor"
	case TypeEntityAssociation:
		return "entity association"
	case TypeGenericLocator:
		return "generic device locator"
	case TypeFRULocator:
		return "FRU device locator"
	case TypeMCLocator:
		return "management controller locator"
	}
	return fmt.Sprintf("record type 0x%02X", uint8(t))
}

// Header is the 5-byte header common to every repository record.
type Header struct {
	RecordID     uint16
	VersionMajor uint8
	VersionMinor uint8
	Type         RecordType
	Length       uint8
}

// Record is a parsed SDR. Exactly one of the typed content fields is
// non-nil; unknown record types keep their raw payload.
type Record struct {
	Header   Header
	Full     *FullSensorRecord
	Compact  *CompactSensorRecord
	EventOnly *EventOnlyRecord
	Generic  *GenericLocatorRecord
	FRU      *FRULocatorRecord
	MC       *MCLocatorRecord
	Entity   *EntityAssociationRecord
	Raw      []byte // payload of unrecognized record types
}

// Name returns the record's ID string when it has one.
func (r Record) Name() string {
	switch {
	case r.Full != nil:
		return r.Full.ID
	case r.Compact != nil:
		return r.Compact.ID
	case r.EventOnly != nil:
		return r.EventOnly.ID
	case r.Generic != nil:
		return r.Generic.ID
	case r.FRU != nil:
		return r.FRU.ID
	case r.MC != nil:
		return r.MC.ID
	}
	return ""
}

// Key returns the sensor key for sensor-class records.
func (r Record) Key() (SensorKey, bool) {
	switch {
	case r.Full != nil:
		return r.Full.Key, true
	case r.Compact != nil:
		return r.Compact.Key, true
	case r.EventOnly != nil:
		return r.EventOnly.Key, true
	}
	return SensorKey{}, false
}

// SensorKey uniquely identifies a sensor across bridged IPMBs.
type SensorKey struct {
	OwnerID      uint8 // 7-bit I2C or system software id
	OwnerIsSW    bool
	OwnerChannel uint8
	OwnerLUN     protocol.LUN
	FRULUN       protocol.LUN
	SensorNumber uint8
}

// Address converts the key into a responder address for Get Sensor Reading.
func (k SensorKey) Address() protocol.Address {
	return protocol.Address{
		Channel:      protocol.Channel(k.OwnerChannel),
		SlaveAddress: k.OwnerID << 1,
		Lun:          k.OwnerLUN,
	}
}

func parseSensorKey(data []byte) (SensorKey, error) {
	if len(data) < 3 {
		return SensorKey{}, protocol.Parsef("sensor key needs 3 bytes, have %d", len(data))
	}
	if data[2] == 0xFF {
		return SensorKey{}, protocol.Parsef("reserved sensor number 0xFF")
	}
	return SensorKey{
		OwnerID:      data[0] >> 1,
		OwnerIsSW:    codec.Bit(data[0], 0),
		OwnerChannel: data[1] >> 4,
		FRULUN:       protocol.LUN(data[1] >> 2 & 0x3),
		OwnerLUN:     protocol.LUN(data[1] & 0x3),
		SensorNumber: data[2],
	}, nil
}

// Parse decodes a complete repository record: 5-byte header plus payload.
// A length mismatch between header and payload is a structural error that
// aborts iteration; errors inside a known payload are recoverable and
// reported per-record by the caller.
func Parse(data []byte) (Record, error) {
	if len(data) < 5 {
		return Record{}, fmt.Errorf("%w: sdr shorter than header: %d bytes", ErrStructural, len(data))
	}

	h := Header{
		RecordID:     codec.Uint16(data[0:2]),
		VersionMajor: data[2] & 0xF,
		VersionMinor: data[2] >> 4 & 0xF,
		Type:         RecordType(data[3]),
		Length:       data[4],
	}

	payload := data[5:]
	if len(payload) != int(h.Length) {
		return Record{}, fmt.Errorf("%w: sdr 0x%04X: header says %d payload bytes, have %d",
			ErrStructural, h.RecordID, h.Length, len(payload))
	}

	rec := Record{Header: h}
	var err error
	switch h.Type {
	case TypeFullSensor:
		rec.Full, err = parseFullSensor(payload)
	case TypeCompactSensor:
		rec.Compact, err = parseCompactSensor(payload)
	case TypeEventOnly:
		rec.EventOnly, err = parseEventOnly(payload)
	case TypeGenericLocator:
		rec.Generic, err = parseGenericLocator(payload)
	case TypeFRULocator:
		rec.FRU, err = parseFRULocator(payload)
	case TypeMCLocator:
		rec.MC, err = parseMCLocator(payload)
	case TypeEntityAssociation:
		rec.Entity, err = parseEntityAssociation(payload)
	default:
		rec.Raw = append([]byte(nil), payload...)
	}
	if err != nil {
		return Record{}, fmt.Errorf("sdr 0x%04X (%s): %w", h.RecordID, h.Type, err)
	}
	return rec, nil
}

func parseIDString(typeLen uint8, data []byte) (string, error) {
	s, _, err := codec.DecodeTypeLength(typeLen, data)
	return s, err
}
