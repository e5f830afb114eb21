package sdr

import (
	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// CompactSensorRecord (type 0x02) describes a discrete or shared sensor
// without conversion parameters.
type CompactSensorRecord struct {
	Key            SensorKey
	EntityID       uint8
	EntityInstance uint8
	Initialization uint8
	Capabilities   SensorCapabilities
	SensorType     uint8
	EventType      uint8
	Units          SensorUnits

	// Record sharing: count of sensors covered by this record and how
	// their IDs/offsets derive from it.
	ShareCount       uint8
	ShareIDModifier  uint8
	ShareOffset      uint8
	EntityInstShared bool

	PositiveHysteresis uint8
	NegativeHysteresis uint8
	OEM                uint8
	ID                 string
}

func parseCompactSensor(p []byte) (*CompactSensorRecord, error) {
	if len(p) < 27 {
		return nil, protocol.Parsef("compact sensor record needs 27 bytes, have %d", len(p))
	}

	key, err := parseSensorKey(p[0:3])
	if err != nil {
		return nil, err
	}

	sharing := codec.Uint16(p[18:20])
	r := &CompactSensorRecord{
		Key:            key,
		EntityID:       p[3],
		EntityInstance: p[4],
		Initialization: p[5],
		Capabilities: parseCapabilities(p[6],
			codec.Uint16(p[9:11]), codec.Uint16(p[11:13]), codec.Uint16(p[13:15])),
		SensorType: p[7],
		EventType:  p[8],
		Units:      parseSensorUnits(p[15], p[16], p[17]),

		ShareCount:       uint8(sharing & 0xF),
		ShareIDModifier:  uint8(sharing >> 4 & 0x3),
		EntityInstShared: sharing&0x80 != 0,
		ShareOffset:      uint8(sharing >> 8 & 0x7F),

		PositiveHysteresis: p[20],
		NegativeHysteresis: p[21],
		OEM:                p[25],
	}

	r.ID, err = parseIDString(p[26], p[27:])
	if err != nil {
		return nil, err
	}
	return r, nil
}

// EventOnlyRecord (type 0x03) identifies a sensor that only generates
// events.
type EventOnlyRecord struct {
	Key            SensorKey
	EntityID       uint8
	EntityInstance uint8
	SensorType     uint8
	EventType      uint8
	OEM            uint8
	ID             string
}

func parseEventOnly(p []byte) (*EventOnlyRecord, error) {
	if len(p) < 12 {
		return nil, protocol.Parsef("event-only record needs 12 bytes, have %d", len(p))
	}

	key, err := parseSensorKey(p[0:3])
	if err != nil {
		return nil, err
	}

	r := &EventOnlyRecord{
		Key:            key,
		EntityID:       p[3],
		EntityInstance: p[4],
		SensorType:     p[5],
		EventType:      p[6],
		OEM:            p[10],
	}
	r.ID, err = parseIDString(p[11], p[12:])
	if err != nil {
		return nil, err
	}
	return r, nil
}

// EntityAssociationRecord (type 0x08) relates a container entity to the
// entities it contains.
type EntityAssociationRecord struct {
	ContainerEntityID       uint8
	ContainerEntityInstance uint8
	RangeList               bool
	LinkedRecords           bool
	Contained               [4]struct{ EntityID, Instance uint8 }
}

func parseEntityAssociation(p []byte) (*EntityAssociationRecord, error) {
	if len(p) < 11 {
		return nil, protocol.Parsef("entity association record needs 11 bytes, have %d", len(p))
	}
	r := &EntityAssociationRecord{
		ContainerEntityID:       p[0],
		ContainerEntityInstance: p[1],
		RangeList:               codec.Bit(p[2], 7),
		LinkedRecords:           codec.Bit(p[2], 6),
	}
	for i := 0; i < 4; i++ {
		r.Contained[i].EntityID = p[3+2*i]
		r.Contained[i].Instance = p[4+2*i]
	}
	return r, nil
}
