package sdr

import "fmt"

// Unit is an IPMI sensor base unit code.
type Unit uint8

// The commonly encountered subset of the sensor unit type codes.
const (
	UnitUnspecified Unit = 0
	UnitDegreesC    Unit = 1
	UnitDegreesF    Unit = 2
	UnitKelvin      Unit = 3
	UnitVolts       Unit = 4
	UnitAmps        Unit = 5
	UnitWatts       Unit = 6
	UnitJoules      Unit = 7
	UnitRPM         Unit = 18
	UnitHz          Unit = 19
	UnitMicrosecond Unit = 20
	UnitMillisecond Unit = 21
	UnitSecond      Unit = 22
	UnitMinute      Unit = 23
	UnitHour        Unit = 24
	UnitDay         Unit = 25
	UnitMil         Unit = 26
	UnitBit         Unit = 70
	UnitByte        Unit = 72
)

var unitNames = map[Unit]string{
	UnitUnspecified: "",
	UnitDegreesC:    "degrees C",
	UnitDegreesF:    "degrees F",
	UnitKelvin:      "Kelvin",
	UnitVolts:       "Volts",
	UnitAmps:        "Amps",
	UnitWatts:       "Watts",
	UnitJoules:      "Joules",
	UnitRPM:         "RPM",
	UnitHz:          "Hz",
	UnitMicrosecond: "us",
	UnitMillisecond: "ms",
	UnitSecond:      "s",
	UnitMinute:      "min",
	UnitHour:        "h",
	UnitDay:         "day",
	UnitMil:         "mil",
	UnitBit:         "bits",
	UnitByte:        "bytes",
}

func (u Unit) String() string {
	if s, ok := unitNames[u]; ok {
		return s
	}
	return fmt.Sprintf("unit(%d)", uint8(u))
}

// RateUnit modifies a base unit per time interval.
type RateUnit uint8

const (
	RateNone        RateUnit = 0
	RatePerMicrosec RateUnit = 1
	RatePerMillisec RateUnit = 2
	RatePerSecond   RateUnit = 3
	RatePerMinute   RateUnit = 4
	RatePerHour     RateUnit = 5
	RatePerDay      RateUnit = 6
)

func (r RateUnit) String() string {
	switch r {
	case RatePerMicrosec:
		return "/us"
	case RatePerMillisec:
		return "/ms"
	case RatePerSecond:
		return "/s"
	case RatePerMinute:
		return "/min"
	case RatePerHour:
		return "/h"
	case RatePerDay:
		return "/day"
	}
	return ""
}

// SensorUnits is the decoded three-byte unit block of a sensor record.
type SensorUnits struct {
	Base       Unit
	Modifier   Unit
	// ModifierOp: 0 none, 1 base/modifier, 2 base*modifier.
	ModifierOp uint8
	Rate       RateUnit
	Percentage bool
}

func parseSensorUnits(units1, base, modifier uint8) SensorUnits {
	rate := RateUnit(units1 >> 3 & 0x7)
	if rate == 7 {
		rate = RateNone
	}
	op := units1 >> 1 & 0x3
	if op == 3 {
		op = 0
	}
	return SensorUnits{
		Base:       Unit(base),
		Modifier:   Unit(modifier),
		ModifierOp: op,
		Rate:       rate,
		Percentage: units1&0x1 == 0x1,
	}
}

func (u SensorUnits) String() string {
	if u.Percentage {
		return "%"
	}
	s := u.Base.String()
	if r := u.Rate.String(); r != "" {
		s += r
	}
	return s
}

// DataFormat is the numeric interpretation of a raw analog reading.
type DataFormat uint8

const (
	FormatUnsigned       DataFormat = 0
	FormatOnesComplement DataFormat = 1
	FormatTwosComplement DataFormat = 2
	FormatNoAnalog       DataFormat = 3
)

// Decode interprets a raw reading byte under the format.
func (f DataFormat) Decode(raw uint8) (float64, bool) {
	switch f {
	case FormatUnsigned:
		return float64(raw), true
	case FormatOnesComplement:
		v := int8(raw)
		if v < 0 {
			v++
		}
		return float64(v), true
	case FormatTwosComplement:
		return float64(int8(raw)), true
	}
	return 0, false
}
