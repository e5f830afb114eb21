package catalog

// Sensor/Event (NetFn 0x04) commands.

import (
	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

const (
	cmdGetSensorThresholds = 0x27
	cmdGetSensorReading    = 0x2D
)

// GetSensorReading reads a sensor's raw value and state. Target may
// address a satellite controller; the client bridges it over IPMB.
type GetSensorReading struct {
	SensorNumber uint8
	Target       protocol.Address
}

func (c GetSensorReading) Request() protocol.Request {
	req := protocol.NewRequest(protocol.NetFnSensor, cmdGetSensorReading, []byte{c.SensorNumber})
	if c.Target != (protocol.Address{}) {
		req.Target = c.Target
	}
	return req
}

// SensorReading is the parsed Get Sensor Reading response.
type SensorReading struct {
	Raw              uint8
	EventsDisabled   bool
	ScanningDisabled bool
	Unavailable      bool
	// Discrete state bits, offsets 0..14 across the two optional
	// trailing bytes.
	StateBits uint16
	HasStates bool
}

// ParseSensorReading decodes the response body.
func ParseSensorReading(data []byte) (SensorReading, error) {
	if len(data) < 2 {
		return SensorReading{}, protocol.ErrShortResponse("Get Sensor Reading", len(data), 2)
	}
	r := SensorReading{
		Raw:              data[0],
		EventsDisabled:   !codec.Bit(data[1], 7),
		ScanningDisabled: !codec.Bit(data[1], 6),
		Unavailable:      codec.Bit(data[1], 5),
	}
	if len(data) >= 3 {
		r.HasStates = true
		r.StateBits = uint16(data[2])
		if len(data) >= 4 {
			// Bit 7 of the second state byte is reserved.
			r.StateBits |= uint16(data[3]&0x7F) << 8
		}
	}
	return r, nil
}

// GetSensorThresholds reads a sensor's configured thresholds.
type GetSensorThresholds struct {
	SensorNumber uint8
	Target       protocol.Address
}

func (c GetSensorThresholds) Request() protocol.Request {
	req := protocol.NewRequest(protocol.NetFnSensor, cmdGetSensorThresholds, []byte{c.SensorNumber})
	if c.Target != (protocol.Address{}) {
		req.Target = c.Target
	}
	return req
}

// SensorThresholds is the parsed response. Raw values are meaningful only
// for the thresholds whose readable bit is set.
type SensorThresholds struct {
	Readable             uint8 // bit per threshold, LNC..UNR
	LowerNonCritical     uint8
	LowerCritical        uint8
	LowerNonRecoverable  uint8
	UpperNonCritical     uint8
	UpperCritical        uint8
	UpperNonRecoverable  uint8
}

// ParseSensorThresholds decodes the response body.
func ParseSensorThresholds(data []byte) (SensorThresholds, error) {
	if len(data) < 7 {
		return SensorThresholds{}, protocol.ErrShortResponse("Get Sensor Thresholds", len(data), 7)
	}
	return SensorThresholds{
		Readable:            data[0] & 0x3F,
		LowerNonCritical:    data[1],
		LowerCritical:       data[2],
		LowerNonRecoverable: data[3],
		UpperNonCritical:    data[4],
		UpperCritical:       data[5],
		UpperNonRecoverable: data[6],
	}, nil
}
