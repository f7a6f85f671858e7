package sense

import (
	"context"
	"sort"
	"time"
)

// #region reading

// RawReading is one sensed value as delivered by a Source, before
// normalization. Confidence is optional; sources that cannot estimate it
// leave HasConfidence false and the builder defaults to 1.0.
type RawReading struct {
	SensorID      string
	Value         any
	Confidence    float64
	HasConfidence bool
	Timestamp     time.Time
}

// Reading is a normalized sensor value inside a ContextPacket.
type Reading struct {
	Value      any
	Confidence float64       // always in [0, 1]
	Age        time.Duration // time since the source produced the value
}

// #endregion reading

// #region packet

// ContextPacket is one immutable snapshot of sensed environment/user state.
// A sensor that failed to report is simply absent; consumers must treat
// absence explicitly, never coerce it to a zero value.
type ContextPacket struct {
	timestamp time.Time
	readings  map[string]Reading
}

// Timestamp returns the packet creation time.
func (p ContextPacket) Timestamp() time.Time {
	return p.timestamp
}

// Reading returns the reading for a sensor id and whether it is present.
func (p ContextPacket) Reading(sensorID string) (Reading, bool) {
	r, ok := p.readings[sensorID]
	return r, ok
}

// SensorIDs returns all present sensor ids in sorted order. Sorted so that
// anything derived from the packet (rule facts, reasoning prompts) is
// reproducible for the same packet.
func (p ContextPacket) SensorIDs() []string {
	ids := make([]string, 0, len(p.readings))
	for id := range p.readings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of sensors present in the packet.
func (p ContextPacket) Len() int {
	return len(p.readings)
}

// String looks up a string-valued reading. ok is false when the sensor is
// absent or holds a non-string value.
func (p ContextPacket) String(sensorID string) (string, Reading, bool) {
	r, ok := p.readings[sensorID]
	if !ok {
		return "", Reading{}, false
	}
	s, ok := r.Value.(string)
	return s, r, ok
}

// Bool looks up a bool-valued reading.
func (p ContextPacket) Bool(sensorID string) (bool, Reading, bool) {
	r, ok := p.readings[sensorID]
	if !ok {
		return false, Reading{}, false
	}
	b, ok := r.Value.(bool)
	return b, r, ok
}

// Float looks up a numeric reading, accepting float64 or int values.
func (p ContextPacket) Float(sensorID string) (float64, Reading, bool) {
	r, ok := p.readings[sensorID]
	if !ok {
		return 0, Reading{}, false
	}
	switch v := r.Value.(type) {
	case float64:
		return v, r, true
	case int:
		return float64(v), r, true
	case int64:
		return float64(v), r, true
	}
	return 0, Reading{}, false
}

// #endregion packet

// #region source

// Source is one sensor plugin. Sense returns zero or more raw readings;
// an error means the source has nothing usable this cycle and its sensors
// are omitted from the packet.
type Source interface {
	ID() string
	Sense(ctx context.Context) ([]RawReading, error)
}

// #endregion source
