package sdr

import (
	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// GenericLocatorRecord (type 0x10) locates a device behind a management
// controller, typically on a private bus.
type GenericLocatorRecord struct {
	AccessAddress  uint8 // 7-bit controller address
	SlaveAddress   uint8
	Channel        uint8
	AccessLUN      protocol.LUN
	PrivateBusID   uint8
	AddressSpan    uint8
	DeviceType     uint8
	DeviceModifier uint8
	EntityID       uint8
	EntityInstance uint8
	OEM            uint8
	ID             string
}

func parseGenericLocator(p []byte) (*GenericLocatorRecord, error) {
	if len(p) < 12 {
		return nil, protocol.Parsef("generic locator record needs 12 bytes, have %d", len(p))
	}
	r := &GenericLocatorRecord{
		AccessAddress:  p[0] >> 1,
		SlaveAddress:   p[1] >> 1,
		Channel:        p[1]&0x1<<3 | p[2]>>5,
		AccessLUN:      protocol.LUN(p[2] >> 3 & 0x3),
		PrivateBusID:   p[2] & 0x7,
		AddressSpan:    p[3] & 0x7,
		DeviceType:     p[5],
		DeviceModifier: p[6],
		EntityID:       p[7],
		EntityInstance: p[8],
		OEM:            p[9],
	}
	var err error
	r.ID, err = parseIDString(p[10], p[11:])
	if err != nil {
		return nil, err
	}
	return r, nil
}

// FRULocatorRecord (type 0x11) locates a FRU device. Logical FRU devices
// are addressed by FRU device id, physical ones by slave address.
type FRULocatorRecord struct {
	AccessAddress  uint8
	// DeviceID is the FRU device id (logical) or slave address (physical).
	DeviceID       uint8
	Logical        bool
	AccessLUN      protocol.LUN
	PrivateBusID   uint8
	Channel        uint8
	DeviceType     uint8
	DeviceModifier uint8
	EntityID       uint8
	EntityInstance uint8
	OEM            uint8
	ID             string
}

func parseFRULocator(p []byte) (*FRULocatorRecord, error) {
	if len(p) < 12 {
		return nil, protocol.Parsef("FRU locator record needs 12 bytes, have %d", len(p))
	}
	logical := codec.Bit(p[2], 7)
	deviceID := p[1]
	if !logical {
		deviceID >>= 1
	}
	r := &FRULocatorRecord{
		AccessAddress:  p[0] >> 1,
		DeviceID:       deviceID,
		Logical:        logical,
		AccessLUN:      protocol.LUN(p[2] >> 3 & 0x3),
		PrivateBusID:   p[2] & 0x7,
		Channel:        p[3] >> 4,
		DeviceType:     p[5],
		DeviceModifier: p[6],
		EntityID:       p[7],
		EntityInstance: p[8],
		OEM:            p[9],
	}
	var err error
	r.ID, err = parseIDString(p[10], p[11:])
	if err != nil {
		return nil, err
	}
	return r, nil
}

// MCLocatorRecord (type 0x12) locates a management controller and its
// capabilities.
type MCLocatorRecord struct {
	SlaveAddress    uint8
	Channel         uint8
	ACPIPower       bool
	Bridge          bool
	IPMBEventGen    bool
	IPMBEventRecv   bool
	FRUInventory    bool
	SELDevice       bool
	SDRRepository   bool
	SensorDevice    bool
	EntityID        uint8
	EntityInstance  uint8
	OEM             uint8
	ID              string
}

func parseMCLocator(p []byte) (*MCLocatorRecord, error) {
	if len(p) < 12 {
		return nil, protocol.Parsef("MC locator record needs 12 bytes, have %d", len(p))
	}
	r := &MCLocatorRecord{
		SlaveAddress:   p[0] >> 1,
		Channel:        p[1] & 0xF,
		ACPIPower:      codec.Bit(p[2], 7),
		Bridge:         codec.Bit(p[3], 6),
		IPMBEventGen:   codec.Bit(p[3], 5),
		IPMBEventRecv:  codec.Bit(p[3], 4),
		FRUInventory:   codec.Bit(p[3], 3),
		SELDevice:      codec.Bit(p[3], 2),
		SDRRepository:  codec.Bit(p[3], 1),
		SensorDevice:   codec.Bit(p[3], 0),
		EntityID:       p[7],
		EntityInstance: p[8],
		OEM:            p[9],
	}
	var err error
	r.ID, err = parseIDString(p[10], p[11:])
	if err != nil {
		return nil, err
	}
	return r, nil
}
