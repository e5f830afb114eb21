package client

// Sensor reading pipeline: SDR record -> sensor key -> (possibly bridged)
// Get Sensor Reading -> engineering units and threshold severity.

import (
	"context"
	"fmt"

	"github.com/tturner/ipmiq/internal/ipmi/catalog"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
	"github.com/tturner/ipmiq/internal/ipmi/sdr"
)

// SensorValue is one sensor observation.
type SensorValue struct {
	Name   string
	Key    sdr.SensorKey
	Raw    uint8
	// Value is set for analog sensors with a successful conversion.
	Value *float64
	Unit  string
	// StateBits carries discrete sensor states when present.
	StateBits   uint16
	Severity    sdr.ThresholdSeverity
	Unavailable bool
	ScanDisabled bool
}

func (v SensorValue) String() string {
	switch {
	case v.Unavailable:
		return fmt.Sprintf("%s: unavailable", v.Name)
	case v.Value != nil:
		return fmt.Sprintf("%s: %.2f %s [%s]", v.Name, *v.Value, v.Unit, v.Severity)
	}
	return fmt.Sprintf("%s: raw 0x%02X states 0x%04X", v.Name, v.Raw, v.StateBits)
}

// sensorTarget derives the responder address for a sensor key. Sensors
// owned by the BMC itself read locally; others bridge over IPMB.
func (c *Client) sensorTarget(key sdr.SensorKey) protocol.Address {
	addr := key.Address()
	if key.OwnerIsSW || addr.SlaveAddress == c.bmcAddr && addr.Channel == protocol.ChannelPrimaryIPMB {
		return protocol.BMC()
	}
	return addr
}

// ReadSensorRaw issues Get Sensor Reading for a sensor key, bridging when
// the owner is not the BMC.
func (c *Client) ReadSensorRaw(ctx context.Context, key sdr.SensorKey) (catalog.SensorReading, error) {
	data, err := c.Execute(ctx, catalog.GetSensorReading{
		SensorNumber: key.SensorNumber,
		Target:       c.sensorTarget(key),
	})
	if err != nil {
		return catalog.SensorReading{}, err
	}
	return catalog.ParseSensorReading(data)
}

// ReadSensor reads and converts the sensor described by an SDR. Full
// records produce engineering values and threshold severities; compact
// and event-only records produce raw/state readings.
func (c *Client) ReadSensor(ctx context.Context, rec sdr.Record) (SensorValue, error) {
	key, ok := rec.Key()
	if !ok {
		return SensorValue{}, fmt.Errorf("record 0x%04X (%s) does not describe a sensor",
			rec.Header.RecordID, rec.Header.Type)
	}

	reading, err := c.ReadSensorRaw(ctx, key)
	if err != nil {
		return SensorValue{}, err
	}

	v := SensorValue{
		Name:         rec.Name(),
		Key:          key,
		Raw:          reading.Raw,
		StateBits:    reading.StateBits,
		Unavailable:  reading.Unavailable,
		ScanDisabled: reading.ScanningDisabled,
	}
	if reading.Unavailable {
		return v, nil
	}

	if full := rec.Full; full != nil && full.Format != sdr.FormatNoAnalog {
		value, err := full.Convert(reading.Raw)
		if err != nil {
			return v, fmt.Errorf("sensor %q: %w", v.Name, err)
		}
		v.Value = &value
		v.Unit = full.Units.String()
		v.Severity = full.Classify(reading.Raw)
	}
	return v, nil
}

// SensorThresholds reads the configured thresholds for a sensor key.
func (c *Client) SensorThresholds(ctx context.Context, key sdr.SensorKey) (catalog.SensorThresholds, error) {
	data, err := c.Execute(ctx, catalog.GetSensorThresholds{
		SensorNumber: key.SensorNumber,
		Target:       c.sensorTarget(key),
	})
	if err != nil {
		return catalog.SensorThresholds{}, err
	}
	return catalog.ParseSensorThresholds(data)
}

// ReadAllSensors walks the SDR repository and reads every sensor-class
// record. Per-sensor failures are collected, not fatal.
func (c *Client) ReadAllSensors(ctx context.Context) ([]SensorValue, []error, error) {
	var values []SensorValue
	var readErrs []error

	err := c.WalkSDRs(ctx, func(r SDRResult) bool {
		if r.Err != nil {
			readErrs = append(readErrs, fmt.Errorf("record 0x%04X: %w", r.RecordID, r.Err))
			return true
		}
		if _, ok := r.Record.Key(); !ok {
			return true
		}
		v, err := c.ReadSensor(ctx, r.Record)
		if err != nil {
			readErrs = append(readErrs, fmt.Errorf("sensor %q: %w", r.Record.Name(), err))
			return true
		}
		values = append(values, v)
		return true
	})
	return values, readErrs, err
}
