package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// #region fixture-types

// Fixture is the JSON structure for one recorded cycle: the raw readings,
// the device fleet, the oracle's two outputs verbatim, and the outputs the
// deterministic stages are expected to reproduce.
type Fixture struct {
	Description   string                       `json:"description"`
	Packet        FixturePacket                `json:"packet"`
	Devices       map[string]device.Capability `json:"devices"`
	OracleOutputs []string                     `json:"oracle_outputs"`
	Expected      *FixtureExpected             `json:"expected,omitempty"`
}

// FixturePacket is the JSON-serializable packet input.
type FixturePacket struct {
	Timestamp time.Time        `json:"timestamp"`
	Readings  []FixtureReading `json:"readings"`
}

// FixtureReading mirrors sense.RawReading with JSON tags. A missing
// confidence field means the source reported none.
type FixtureReading struct {
	SensorID   string    `json:"sensor_id"`
	Value      any       `json:"value"`
	Confidence *float64  `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// FixtureExpected captures what the deterministic stages must reproduce.
// Absent fields are not checked.
type FixtureExpected struct {
	Directives []string        `json:"directives"`
	Verdict    string          `json:"verdict"`
	Action     json.RawMessage `json:"action,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// RawReadings converts the fixture packet to builder input.
func (p FixturePacket) RawReadings() []sense.RawReading {
	raws := make([]sense.RawReading, len(p.Readings))
	for i, r := range p.Readings {
		raw := sense.RawReading{
			SensorID:  r.SensorID,
			Value:     r.Value,
			Timestamp: r.Timestamp,
		}
		if r.Confidence != nil {
			raw.Confidence = *r.Confidence
			raw.HasConfidence = true
		}
		raws[i] = raw
	}
	return raws
}

// Lookup builds a capability lookup from the fixture's device fleet.
func (f *Fixture) Lookup() device.CapabilityLookup {
	lookup := device.StaticLookup{}
	for id, cap := range f.Devices {
		cap.DeviceID = id
		lookup[id] = cap
	}
	return lookup
}

// #endregion fixture-loader
