package sdr

import (
	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// SensorCapabilities is the decoded capabilities byte plus the threshold
// and event masks that qualify it.
type SensorCapabilities struct {
	Ignore           bool
	AutoRearm        bool
	Hysteresis       uint8 // 0 none, 1 readable, 2 readable+settable, 3 fixed
	ThresholdAccess  uint8 // 0 none, 1 readable, 2 readable+settable, 3 fixed
	EventMsgControl  uint8
	AssertionMask    uint16
	DeassertionMask  uint16
	ReadableMask     uint8 // thresholds that Get Sensor Thresholds returns
	SettableMask     uint8
}

func parseCapabilities(caps uint8, assertLower, deassertUpper, settableReadable uint16) SensorCapabilities {
	return SensorCapabilities{
		Ignore:          codec.Bit(caps, 7),
		AutoRearm:       codec.Bit(caps, 6),
		Hysteresis:      caps >> 4 & 0x3,
		ThresholdAccess: caps >> 2 & 0x3,
		EventMsgControl: caps & 0x3,
		AssertionMask:   assertLower & 0x0FFF,
		DeassertionMask: deassertUpper & 0x0FFF,
		SettableMask:    uint8(settableReadable >> 8 & 0x3F),
		ReadableMask:    uint8(settableReadable & 0x3F),
	}
}

// FullSensorRecord (type 0x01) describes an analog sensor with conversion
// parameters.
type FullSensorRecord struct {
	Key            SensorKey
	EntityID       uint8
	EntityInstance uint8
	Initialization uint8
	Capabilities   SensorCapabilities
	SensorType     uint8
	EventType      uint8
	Units          SensorUnits

	Format        DataFormat
	Linearization Linearization
	M             int16 // 10-bit signed
	Tolerance     uint8
	B             int16 // 10-bit signed
	Accuracy      uint16
	AccuracyExp   uint8
	Direction     uint8
	RExp          int8 // 4-bit signed
	BExp          int8 // 4-bit signed

	NominalReading *uint8
	NormalMaximum  *uint8
	NormalMinimum  *uint8
	MaxReading     uint8
	MinReading     uint8

	Thresholds          Thresholds
	PositiveHysteresis  uint8
	NegativeHysteresis  uint8
	OEM                 uint8
	ID                  string
}

// Thresholds holds the raw threshold bytes of a full sensor record.
type Thresholds struct {
	UpperNonRecoverable uint8
	UpperCritical       uint8
	UpperNonCritical    uint8
	LowerNonRecoverable uint8
	LowerCritical       uint8
	LowerNonCritical    uint8
}

func parseFullSensor(p []byte) (*FullSensorRecord, error) {
	if len(p) < 43 {
		return nil, protocol.Parsef("full sensor record needs 43 bytes, have %d", len(p))
	}

	key, err := parseSensorKey(p[0:3])
	if err != nil {
		return nil, err
	}

	r := &FullSensorRecord{
		Key:            key,
		EntityID:       p[3],
		EntityInstance: p[4],
		Initialization: p[5],
		Capabilities: parseCapabilities(p[6],
			codec.Uint16(p[9:11]), codec.Uint16(p[11:13]), codec.Uint16(p[13:15])),
		SensorType: p[7],
		EventType:  p[8],
		Units:      parseSensorUnits(p[15], p[16], p[17]),

		Format:        DataFormat(p[15] >> 6 & 0x3),
		Linearization: Linearization(p[18] & 0x7F),

		// M and B are 10-bit signed values split across two bytes; the
		// sign lives in the composite field's top bit.
		M:           codec.SignExtend10(p[19], p[20]>>6),
		Tolerance:   p[20] & 0x3F,
		B:           codec.SignExtend10(p[21], p[22]>>6),
		Accuracy:    uint16(p[22]&0x3F) | uint16(p[23]>>4&0xF)<<6,
		AccuracyExp: p[23] >> 2 & 0x3,
		Direction:   p[23] & 0x3,
		RExp:        codec.SignExtend4(p[24] >> 4),
		BExp:        codec.SignExtend4(p[24]),

		MaxReading: p[29],
		MinReading: p[30],
		Thresholds: Thresholds{
			UpperNonRecoverable: p[31],
			UpperCritical:       p[32],
			UpperNonCritical:    p[33],
			LowerNonRecoverable: p[34],
			LowerCritical:       p[35],
			LowerNonCritical:    p[36],
		},
		PositiveHysteresis: p[37],
		NegativeHysteresis: p[38],
		OEM:                p[41],
	}

	analog := p[25]
	if codec.Bit(analog, 0) {
		v := p[26]
		r.NominalReading = &v
	}
	if codec.Bit(analog, 1) {
		v := p[27]
		r.NormalMaximum = &v
	}
	if codec.Bit(analog, 2) {
		v := p[28]
		r.NormalMinimum = &v
	}

	r.ID, err = parseIDString(p[42], p[43:])
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Convert turns a raw reading into engineering units:
// L((M*raw + B*10^BExp) * 10^RExp).
func (r *FullSensorRecord) Convert(raw uint8) (float64, error) {
	x, ok := r.Format.Decode(raw)
	if !ok {
		return 0, protocol.Parsef("sensor %q has no analog reading", r.ID)
	}
	v := (float64(r.M)*x + float64(r.B)*pow10(r.BExp)) * pow10(r.RExp)
	return r.Linearization.Apply(v)
}

func pow10(e int8) float64 {
	v := 1.0
	if e >= 0 {
		for i := int8(0); i < e; i++ {
			v *= 10
		}
		return v
	}
	for i := e; i < 0; i++ {
		v /= 10
	}
	return v
}

// ThresholdSeverity classifies a raw reading against the record's
// readable thresholds.
type ThresholdSeverity int

const (
	SeverityOK ThresholdSeverity = iota
	SeverityNonCritical
	SeverityCritical
	SeverityNonRecoverable
)

func (s ThresholdSeverity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityNonCritical:
		return "non-critical"
	case SeverityCritical:
		return "critical"
	case SeverityNonRecoverable:
		return "non-recoverable"
	}
	return "unknown"
}

// Readable threshold mask bits, LNC..UNR.
const (
	maskLowerNonCritical    = 1 << 0
	maskLowerCritical       = 1 << 1
	maskLowerNonRecoverable = 1 << 2
	maskUpperNonCritical    = 1 << 3
	maskUpperCritical       = 1 << 4
	maskUpperNonRecoverable = 1 << 5
)

// Classify compares a raw reading against the record's thresholds,
// honoring only thresholds the record marks readable.
func (r *FullSensorRecord) Classify(raw uint8) ThresholdSeverity {
	readable := r.Capabilities.ReadableMask
	value, ok := r.Format.Decode(raw)
	if !ok {
		return SeverityOK
	}
	at := func(t uint8) float64 {
		v, _ := r.Format.Decode(t)
		return v
	}

	sev := SeverityOK
	raise := func(s ThresholdSeverity) {
		if s > sev {
			sev = s
		}
	}

	if readable&maskUpperNonCritical != 0 && value >= at(r.Thresholds.UpperNonCritical) {
		raise(SeverityNonCritical)
	}
	if readable&maskUpperCritical != 0 && value >= at(r.Thresholds.UpperCritical) {
		raise(SeverityCritical)
	}
	if readable&maskUpperNonRecoverable != 0 && value >= at(r.Thresholds.UpperNonRecoverable) {
		raise(SeverityNonRecoverable)
	}
	if readable&maskLowerNonCritical != 0 && value <= at(r.Thresholds.LowerNonCritical) {
		raise(SeverityNonCritical)
	}
	if readable&maskLowerCritical != 0 && value <= at(r.Thresholds.LowerCritical) {
		raise(SeverityCritical)
	}
	if readable&maskLowerNonRecoverable != 0 && value <= at(r.Thresholds.LowerNonRecoverable) {
		raise(SeverityNonRecoverable)
	}
	return sev
}
