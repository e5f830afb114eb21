package catalog

// LAN configuration (NetFn 0x0C) commands.

import (
	"fmt"
	"net"

	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

const (
	cmdSetLANConfig = 0x01
	cmdGetLANConfig = 0x02
)

// LANParam selects a LAN configuration parameter.
type LANParam uint8

const (
	LANParamSetInProgress      LANParam = 0
	LANParamAuthTypeSupport    LANParam = 1
	LANParamAuthTypeEnables    LANParam = 2
	LANParamIPAddress          LANParam = 3
	LANParamIPSource           LANParam = 4
	LANParamMACAddress         LANParam = 5
	LANParamSubnetMask         LANParam = 6
	LANParamGatewayIP          LANParam = 12
	LANParamGatewayMAC         LANParam = 13
	LANParamBackupGatewayIP    LANParam = 14
	LANParamCommunityString    LANParam = 16
	LANParamVLANID             LANParam = 20
	LANParamVLANPriority       LANParam = 21
	LANParamCipherSuiteCount   LANParam = 22
	LANParamCipherSuites       LANParam = 23
	LANParamCipherSuitePrivs   LANParam = 24
)

func (p LANParam) String() string {
	switch p {
	case LANParamSetInProgress:
		return "set in progress"
	case LANParamAuthTypeSupport:
		return "auth type support"
	case LANParamAuthTypeEnables:
		return "auth type enables"
	case LANParamIPAddress:
		return "ip address"
	case LANParamIPSource:
		return "ip address source"
	case LANParamMACAddress:
		return "mac address"
	case LANParamSubnetMask:
		return "subnet mask"
	case LANParamGatewayIP:
		return "default gateway"
	case LANParamGatewayMAC:
		return "default gateway mac"
	case LANParamBackupGatewayIP:
		return "backup gateway"
	case LANParamCommunityString:
		return "community string"
	case LANParamVLANID:
		return "vlan id"
	case LANParamVLANPriority:
		return "vlan priority"
	case LANParamCipherSuiteCount:
		return "cipher suite count"
	case LANParamCipherSuites:
		return "cipher suites"
	case LANParamCipherSuitePrivs:
		return "cipher suite privileges"
	}
	return fmt.Sprintf("parameter %d", uint8(p))
}

// GetLANConfig reads one LAN configuration parameter.
type GetLANConfig struct {
	Channel  protocol.Channel
	Param    LANParam
	Set      uint8
	Block    uint8
	Revision bool // request parameter revision only
}

func (c GetLANConfig) Request() protocol.Request {
	ch := uint8(c.Channel) & 0xF
	if c.Revision {
		ch |= 0x80
	}
	return protocol.NewRequest(protocol.NetFnTransport, cmdGetLANConfig,
		[]byte{ch, uint8(c.Param), c.Set, c.Block})
}

// LANConfigData is the parsed response: the parameter revision and raw
// parameter bytes.
type LANConfigData struct {
	Revision uint8
	Data     []byte
}

// ParseLANConfigData decodes the response body.
func ParseLANConfigData(data []byte) (LANConfigData, error) {
	if len(data) < 1 {
		return LANConfigData{}, protocol.ErrShortResponse("Get LAN Configuration Parameters", len(data), 1)
	}
	return LANConfigData{
		Revision: data[0],
		Data:     append([]byte(nil), data[1:]...),
	}, nil
}

// IP interprets the parameter bytes as an IPv4 address.
func (d LANConfigData) IP() (net.IP, error) {
	if len(d.Data) < 4 {
		return nil, protocol.Parsef("LAN parameter too short for IPv4 address: %d bytes", len(d.Data))
	}
	return net.IPv4(d.Data[0], d.Data[1], d.Data[2], d.Data[3]), nil
}

// MAC interprets the parameter bytes as a MAC address.
func (d LANConfigData) MAC() (net.HardwareAddr, error) {
	if len(d.Data) < 6 {
		return nil, protocol.Parsef("LAN parameter too short for MAC address: %d bytes", len(d.Data))
	}
	return net.HardwareAddr(append([]byte(nil), d.Data[:6]...)), nil
}

// VLAN interprets the parameter bytes as the VLAN ID parameter: enabled
// flag plus 12-bit id.
func (d LANConfigData) VLAN() (enabled bool, id uint16, err error) {
	if len(d.Data) < 2 {
		return false, 0, protocol.Parsef("LAN parameter too short for VLAN id: %d bytes", len(d.Data))
	}
	return codec.Bit(d.Data[1], 7), uint16(d.Data[0]) | uint16(d.Data[1]&0xF)<<8, nil
}

// SetLANConfig writes one LAN configuration parameter.
type SetLANConfig struct {
	Channel protocol.Channel
	Param   LANParam
	Data    []byte
}

func (c SetLANConfig) Request() protocol.Request {
	body := make([]byte, 0, 2+len(c.Data))
	body = append(body, uint8(c.Channel)&0xF, uint8(c.Param))
	body = append(body, c.Data...)
	return protocol.NewRequest(protocol.NetFnTransport, cmdSetLANConfig, body)
}
