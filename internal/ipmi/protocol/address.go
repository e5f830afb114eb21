package protocol

import "fmt"

// BMCSlaveAddress is the default responder address of the BMC on IPMB.
const BMCSlaveAddress uint8 = 0x20

// RemoteConsoleAddress is the requester address used by software
// (remote console) originators.
const RemoteConsoleAddress uint8 = 0x81

// LUN is a 2-bit logical unit number within a slave address.
type LUN uint8

const (
	LunBMC LUN = 0x0
	LunOEM LUN = 0x1
	LunSMS LUN = 0x2
)

// ParseLUN validates a raw LUN value.
func ParseLUN(v uint8) (LUN, error) {
	if v > 0x3 {
		return 0, fmt.Errorf("LUN out of range: 0x%X", v)
	}
	return LUN(v), nil
}

// Value returns the raw 2-bit value.
func (l LUN) Value() uint8 { return uint8(l) & 0x3 }

// ChannelNumber is a concrete channel, 0..11 plus 0xF for the system
// interface.
type ChannelNumber uint8

// Channel selects a channel for a command, either a concrete number or the
// "current channel" sentinel 0xE.
type Channel uint8

const (
	// ChannelCurrent addresses whichever channel carried the request.
	ChannelCurrent Channel = 0xE
	// ChannelSystem is the system interface (KCS et al.).
	ChannelSystem Channel = 0xF

	// ChannelPrimaryIPMB is channel 0 by convention.
	ChannelPrimaryIPMB Channel = 0x0
)

// ParseChannel validates a raw channel value.
func ParseChannel(v uint8) (Channel, error) {
	if v > 0xF {
		return 0, fmt.Errorf("channel out of range: 0x%X", v)
	}
	return Channel(v), nil
}

// Number returns the concrete channel number, resolving ChannelCurrent via
// the supplied default.
func (c Channel) Number(current ChannelNumber) ChannelNumber {
	if c == ChannelCurrent {
		return current
	}
	return ChannelNumber(c)
}

func (c Channel) String() string {
	switch c {
	case ChannelCurrent:
		return "current"
	case ChannelSystem:
		return "system"
	}
	return fmt.Sprintf("%d", uint8(c))
}

// Address identifies a responder: a channel, a slave address on that
// channel, and a LUN within the slave.
type Address struct {
	Channel      Channel
	SlaveAddress uint8
	Lun          LUN
}

// BMC returns the address of the local BMC.
func BMC() Address {
	return Address{Channel: ChannelSystem, SlaveAddress: BMCSlaveAddress, Lun: LunBMC}
}

// IsBMC reports whether the address targets the local BMC (given the
// BMC's own slave address as reported by the interface).
func (a Address) IsBMC(bmcAddr uint8) bool {
	return a.Channel == ChannelSystem || (a.SlaveAddress == bmcAddr && a.Channel == ChannelPrimaryIPMB)
}

func (a Address) String() string {
	return fmt.Sprintf("ch=%s sa=0x%02X lun=%d", a.Channel, a.SlaveAddress, a.Lun.Value())
}

// PrivilegeLevel is a requested session privilege.
type PrivilegeLevel uint8

const (
	PrivilegeCallback      PrivilegeLevel = 0x1
	PrivilegeUser          PrivilegeLevel = 0x2
	PrivilegeOperator      PrivilegeLevel = 0x3
	PrivilegeAdministrator PrivilegeLevel = 0x4
	PrivilegeOEM           PrivilegeLevel = 0x5
)

func (p PrivilegeLevel) String() string {
	switch p {
	case PrivilegeCallback:
		return "callback"
	case PrivilegeUser:
		return "user"
	case PrivilegeOperator:
		return "operator"
	case PrivilegeAdministrator:
		return "administrator"
	case PrivilegeOEM:
		return "oem"
	}
	return fmt.Sprintf("privilege(0x%X)", uint8(p))
}
