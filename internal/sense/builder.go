package sense

import (
	"time"
)

// #region config

// BuilderConfig holds staleness handling knobs for packet construction.
type BuilderConfig struct {
	FreshFor time.Duration // readings younger than this keep their confidence
	DecayTTL time.Duration // age at which decayed confidence reaches the floor
	Floor    float64       // minimum confidence after decay
}

// DefaultBuilderConfig returns sensible defaults.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		FreshFor: 30 * time.Second,
		DecayTTL: 10 * time.Minute,
		Floor:    0.05,
	}
}

// #endregion config

// #region builder

// Builder normalizes raw readings into immutable ContextPackets.
// Build is pure: no side effects beyond packet construction.
type Builder struct {
	config BuilderConfig
}

// NewBuilder creates a Builder with the given configuration.
func NewBuilder(config BuilderConfig) *Builder {
	return &Builder{config: config}
}

// Build assembles one ContextPacket at the given instant. Readings with no
// explicit confidence default to 1.0. Readings older than FreshFor are kept
// but their confidence decays linearly toward the floor:
// confidence *= max(0, 1 - age/ttl). A later duplicate for the same sensor
// id wins (sources are collected in registration order).
func (b *Builder) Build(now time.Time, raws []RawReading) ContextPacket {
	readings := make(map[string]Reading, len(raws))
	for _, raw := range raws {
		if raw.SensorID == "" {
			continue
		}
		conf := 1.0
		if raw.HasConfidence {
			conf = clamp01(raw.Confidence)
		}

		ts := raw.Timestamp
		if ts.IsZero() {
			ts = now
		}
		age := now.Sub(ts)
		if age < 0 {
			age = 0
		}

		if age > b.config.FreshFor && b.config.DecayTTL > 0 {
			factor := 1 - age.Seconds()/b.config.DecayTTL.Seconds()
			if factor < 0 {
				factor = 0
			}
			conf *= factor
			if conf < b.config.Floor {
				conf = b.config.Floor
			}
		}

		readings[raw.SensorID] = Reading{
			Value:      raw.Value,
			Confidence: conf,
			Age:        age,
		}
	}

	return ContextPacket{timestamp: now, readings: readings}
}

// #endregion builder

// #region helpers

// clamp01 restricts v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
