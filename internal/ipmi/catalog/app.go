package catalog

// Application (NetFn 0x06) commands.

import (
	"fmt"

	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// Command byte assignments, IPMI v2.0 table G-1.
const (
	cmdGetDeviceID             = 0x01
	cmdGetChannelAuthCaps      = 0x38
	cmdGetSessionChallenge     = 0x39
	cmdActivateSession         = 0x3A
	cmdSetSessionPrivilege     = 0x3B
	cmdCloseSession            = 0x3C
	cmdGetChannelAccess        = 0x41
	cmdGetChannelInfo          = 0x42
	cmdGetChannelCipherSuites  = 0x54
	cmdSendMessage             = 0x34
)

// GetDeviceID requests the BMC's device identification block.
type GetDeviceID struct{}

func (GetDeviceID) Request() protocol.Request {
	return protocol.NewRequest(protocol.NetFnApp, cmdGetDeviceID, nil)
}

// DeviceID is the parsed Get Device ID response.
type DeviceID struct {
	DeviceID          uint8
	DeviceRevision    uint8
	ProvidesSDRs      bool
	Available         bool
	FirmwareMajor     uint8
	FirmwareMinor     uint8 // BCD on the wire
	IPMIVersionMajor  uint8
	IPMIVersionMinor  uint8
	ChassisSupport    bool
	BridgeSupport     bool
	IPMBEventGen      bool
	IPMBEventRecv     bool
	FRUInventory      bool
	SELDevice         bool
	SDRRepository     bool
	SensorDevice      bool
	ManufacturerID    uint32 // 3-byte LE
	ProductID         uint16
	AuxFirmware       []byte // 4 bytes when present
}

// ParseDeviceID decodes a Get Device ID response body.
func ParseDeviceID(data []byte) (DeviceID, error) {
	if len(data) < 11 {
		return DeviceID{}, protocol.ErrShortResponse("Get Device ID", len(data), 11)
	}

	d := DeviceID{
		DeviceID:         data[0],
		DeviceRevision:   data[1] & 0xF,
		ProvidesSDRs:     codec.Bit(data[1], 7),
		Available:        !codec.Bit(data[2], 7),
		FirmwareMajor:    data[2] & 0x7F,
		FirmwareMinor:    codec.BCDByte(data[3]),
		IPMIVersionMajor: data[4] & 0xF,
		IPMIVersionMinor: data[4] >> 4 & 0xF,
		ChassisSupport:   codec.Bit(data[5], 7),
		BridgeSupport:    codec.Bit(data[5], 6),
		IPMBEventGen:     codec.Bit(data[5], 5),
		IPMBEventRecv:    codec.Bit(data[5], 4),
		FRUInventory:     codec.Bit(data[5], 3),
		SELDevice:        codec.Bit(data[5], 2),
		SDRRepository:    codec.Bit(data[5], 1),
		SensorDevice:     codec.Bit(data[5], 0),
		ManufacturerID:   codec.Uint24(data[6:9]),
		ProductID:        codec.Uint16(data[9:11]),
	}
	if len(data) >= 15 {
		d.AuxFirmware = append([]byte(nil), data[11:15]...)
	}
	return d, nil
}

// AuthType selects a legacy per-message authentication algorithm.
type AuthType uint8

const (
	AuthNone     AuthType = 0x0
	AuthMD2      AuthType = 0x1
	AuthMD5      AuthType = 0x2
	AuthPassword AuthType = 0x4
	AuthOEM      AuthType = 0x5
)

func (a AuthType) String() string {
	switch a {
	case AuthNone:
		return "none"
	case AuthMD2:
		return "md2"
	case AuthMD5:
		return "md5"
	case AuthPassword:
		return "password"
	case AuthOEM:
		return "oem"
	}
	return fmt.Sprintf("auth(0x%X)", uint8(a))
}

// GetChannelAuthCapabilities probes a channel's supported authentication
// types. Setting V2 requests IPMI 2.0 extended data.
type GetChannelAuthCapabilities struct {
	Channel   protocol.Channel
	Privilege protocol.PrivilegeLevel
	V2        bool
}

func (c GetChannelAuthCapabilities) Request() protocol.Request {
	ch := uint8(c.Channel)
	if c.V2 {
		ch |= 0x80
	}
	return protocol.NewRequest(protocol.NetFnApp, cmdGetChannelAuthCaps, []byte{ch, uint8(c.Privilege)})
}

// ChannelAuthCapabilities is the parsed response.
type ChannelAuthCapabilities struct {
	Channel         protocol.ChannelNumber
	IPMI2Supported  bool
	AuthTypes       []AuthType
	KGStatus        bool // true when KG is set to a non-default value
	PerMessageAuth  bool
	UserLevelAuth   bool
	NonNullUsers    bool
	NullUsers       bool
	AnonymousLogin  bool
	OEMID           uint32
	OEMAux          uint8
}

// ParseChannelAuthCapabilities decodes the response body.
func ParseChannelAuthCapabilities(data []byte) (ChannelAuthCapabilities, error) {
	if len(data) < 8 {
		return ChannelAuthCapabilities{}, protocol.ErrShortResponse("Get Channel Auth Capabilities", len(data), 8)
	}

	caps := ChannelAuthCapabilities{
		Channel:        protocol.ChannelNumber(data[0] & 0xF),
		IPMI2Supported: codec.Bit(data[1], 7),
		KGStatus:       codec.Bit(data[2], 5),
		PerMessageAuth: !codec.Bit(data[2], 4),
		UserLevelAuth:  !codec.Bit(data[2], 3),
		NonNullUsers:   codec.Bit(data[2], 2),
		NullUsers:      codec.Bit(data[2], 1),
		AnonymousLogin: codec.Bit(data[2], 0),
		OEMID:          codec.Uint24(data[4:7]),
		OEMAux:         data[7],
	}

	for _, t := range []AuthType{AuthNone, AuthMD2, AuthMD5, AuthPassword, AuthOEM} {
		if codec.Bit(data[1], uint(t)) {
			caps.AuthTypes = append(caps.AuthTypes, t)
		}
	}
	return caps, nil
}

// Best returns the strongest supported legacy auth type, preferring MD5.
func (c ChannelAuthCapabilities) Best() (AuthType, bool) {
	best, found := AuthNone, false
	for _, t := range c.AuthTypes {
		switch t {
		case AuthMD5:
			return AuthMD5, true
		case AuthMD2, AuthPassword:
			if !found || best == AuthNone || best == AuthPassword && t == AuthMD2 {
				best, found = t, true
			}
		case AuthNone:
			found = true
		}
	}
	return best, found
}

// GetChannelCipherSuites walks the cipher suite records for a channel.
// ListIndex pages through the record data 16 bytes at a time.
type GetChannelCipherSuites struct {
	Channel   protocol.Channel
	ListIndex uint8
}

func (c GetChannelCipherSuites) Request() protocol.Request {
	// Payload type 0 (IPMI), list algorithms by cipher suite.
	return protocol.NewRequest(protocol.NetFnApp, cmdGetChannelCipherSuites,
		[]byte{uint8(c.Channel), 0x00, 0x80 | c.ListIndex&0x3F})
}

// CipherSuiteChunk is one 16-byte page of cipher suite record data.
type CipherSuiteChunk struct {
	Channel protocol.ChannelNumber
	Data    []byte
}

// ParseCipherSuiteChunk decodes one page; an empty Data ends iteration.
func ParseCipherSuiteChunk(data []byte) (CipherSuiteChunk, error) {
	if len(data) < 1 {
		return CipherSuiteChunk{}, protocol.ErrShortResponse("Get Channel Cipher Suites", len(data), 1)
	}
	return CipherSuiteChunk{
		Channel: protocol.ChannelNumber(data[0] & 0xF),
		Data:    append([]byte(nil), data[1:]...),
	}, nil
}

// GetSessionChallenge starts IPMI 1.5 session activation.
type GetSessionChallenge struct {
	AuthType AuthType
	Username string // at most 16 bytes, zero-padded on the wire
}

func (c GetSessionChallenge) Request() protocol.Request {
	body := make([]byte, 17)
	body[0] = uint8(c.AuthType)
	copy(body[1:], c.Username)
	return protocol.NewRequest(protocol.NetFnApp, cmdGetSessionChallenge, body)
}

// SessionChallenge is the parsed response.
type SessionChallenge struct {
	TemporarySessionID uint32
	Challenge          [16]byte
}

// ParseSessionChallenge decodes the response body.
func ParseSessionChallenge(data []byte) (SessionChallenge, error) {
	if len(data) < 20 {
		return SessionChallenge{}, protocol.ErrShortResponse("Get Session Challenge", len(data), 20)
	}
	s := SessionChallenge{TemporarySessionID: codec.Uint32(data[0:4])}
	copy(s.Challenge[:], data[4:20])
	return s, nil
}

// ActivateSession completes IPMI 1.5 session activation.
type ActivateSession struct {
	AuthType        AuthType
	Privilege       protocol.PrivilegeLevel
	Challenge       [16]byte
	InitialSequence uint32
}

func (c ActivateSession) Request() protocol.Request {
	body := make([]byte, 22)
	body[0] = uint8(c.AuthType)
	body[1] = uint8(c.Privilege)
	copy(body[2:18], c.Challenge[:])
	codec.PutUint32(body[18:], c.InitialSequence)
	return protocol.NewRequest(protocol.NetFnApp, cmdActivateSession, body)
}

// ActiveSession is the parsed Activate Session response.
type ActiveSession struct {
	AuthType        AuthType
	SessionID       uint32
	InitialSequence uint32
	MaxPrivilege    protocol.PrivilegeLevel
}

// ParseActiveSession decodes the response body.
func ParseActiveSession(data []byte) (ActiveSession, error) {
	if len(data) < 10 {
		return ActiveSession{}, protocol.ErrShortResponse("Activate Session", len(data), 10)
	}
	return ActiveSession{
		AuthType:        AuthType(data[0] & 0xF),
		SessionID:       codec.Uint32(data[1:5]),
		InitialSequence: codec.Uint32(data[5:9]),
		MaxPrivilege:    protocol.PrivilegeLevel(data[9] & 0xF),
	}, nil
}

// SetSessionPrivilege raises or lowers the active session's privilege.
type SetSessionPrivilege struct {
	Privilege protocol.PrivilegeLevel
}

func (c SetSessionPrivilege) Request() protocol.Request {
	return protocol.NewRequest(protocol.NetFnApp, cmdSetSessionPrivilege, []byte{uint8(c.Privilege)})
}

// ParseSessionPrivilege decodes the granted privilege level.
func ParseSessionPrivilege(data []byte) (protocol.PrivilegeLevel, error) {
	if len(data) < 1 {
		return 0, protocol.ErrShortResponse("Set Session Privilege Level", len(data), 1)
	}
	return protocol.PrivilegeLevel(data[0] & 0xF), nil
}

// CloseSession tears down the identified session.
type CloseSession struct {
	SessionID uint32
}

func (c CloseSession) Request() protocol.Request {
	body := make([]byte, 4)
	codec.PutUint32(body, c.SessionID)
	return protocol.NewRequest(protocol.NetFnApp, cmdCloseSession, body)
}

// GetChannelInfo queries static channel properties.
type GetChannelInfo struct {
	Channel protocol.Channel
}

func (c GetChannelInfo) Request() protocol.Request {
	return protocol.NewRequest(protocol.NetFnApp, cmdGetChannelInfo, []byte{uint8(c.Channel)})
}

// ChannelInfo is the parsed response.
type ChannelInfo struct {
	Channel        protocol.ChannelNumber
	Medium         uint8
	Protocol       uint8
	SessionSupport uint8
	ActiveSessions uint8
	VendorID       uint32
}

// ParseChannelInfo decodes the response body.
func ParseChannelInfo(data []byte) (ChannelInfo, error) {
	if len(data) < 8 {
		return ChannelInfo{}, protocol.ErrShortResponse("Get Channel Info", len(data), 8)
	}
	return ChannelInfo{
		Channel:        protocol.ChannelNumber(data[0] & 0xF),
		Medium:         data[1] & 0x7F,
		Protocol:       data[2] & 0x1F,
		SessionSupport: data[3] >> 6 & 0x3,
		ActiveSessions: data[3] & 0x3F,
		VendorID:       codec.Uint24(data[4:7]),
	}, nil
}

// GetChannelAccess reads volatile or non-volatile channel access settings.
type GetChannelAccess struct {
	Channel     protocol.Channel
	NonVolatile bool
}

func (c GetChannelAccess) Request() protocol.Request {
	mode := uint8(0x80) // volatile
	if c.NonVolatile {
		mode = 0x40
	}
	return protocol.NewRequest(protocol.NetFnApp, cmdGetChannelAccess, []byte{uint8(c.Channel), mode})
}

// ChannelAccess is the parsed response.
type ChannelAccess struct {
	AccessMode       uint8
	UserLevelAuth    bool
	PerMessageAuth   bool
	AlertingDisabled bool
	MaxPrivilege     protocol.PrivilegeLevel
}

// ParseChannelAccess decodes the response body.
func ParseChannelAccess(data []byte) (ChannelAccess, error) {
	if len(data) < 2 {
		return ChannelAccess{}, protocol.ErrShortResponse("Get Channel Access", len(data), 2)
	}
	return ChannelAccess{
		AccessMode:       data[0] & 0x7,
		UserLevelAuth:    !codec.Bit(data[0], 4),
		PerMessageAuth:   !codec.Bit(data[0], 5),
		AlertingDisabled: codec.Bit(data[0], 6),
		MaxPrivilege:     protocol.PrivilegeLevel(data[1] & 0xF),
	}, nil
}
