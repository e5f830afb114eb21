package protocol

import "fmt"

// NetFn is the 6-bit network function selector. Even values are requests,
// odd values are the matching responses.
type NetFn uint8

const (
	NetFnChassis   NetFn = 0x00
	NetFnBridge    NetFn = 0x02
	NetFnSensor    NetFn = 0x04
	NetFnApp       NetFn = 0x06
	NetFnFirmware  NetFn = 0x08
	NetFnStorage   NetFn = 0x0A
	NetFnTransport NetFn = 0x0C
)

// RequestValue returns the even (request) NetFn value.
func (n NetFn) RequestValue() uint8 {
	v := uint8(n)
	return v &^ 1
}

// ResponseValue returns the odd (response) NetFn value.
func (n NetFn) ResponseValue() uint8 {
	return uint8(n) | 1
}

// IsResponse reports whether a raw NetFn byte carries a response.
func IsResponse(raw uint8) bool {
	return raw&1 == 1
}

func (n NetFn) String() string {
	switch n &^ 1 {
	case NetFnChassis:
		return "Chassis"
	case NetFnBridge:
		return "Bridge"
	case NetFnSensor:
		return "Sensor/Event"
	case NetFnApp:
		return "App"
	case NetFnFirmware:
		return "Firmware"
	case NetFnStorage:
		return "Storage"
	case NetFnTransport:
		return "Transport"
	}
	return fmt.Sprintf("NetFn(0x%02X)", uint8(n))
}
