package sense

import (
	"testing"
	"time"
)

func TestBuildDefaultsConfidence(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig())
	now := time.Now().UTC()

	p := b.Build(now, []RawReading{
		{SensorID: "heart_rate", Value: 72, Timestamp: now},
	})

	r, ok := p.Reading("heart_rate")
	if !ok {
		t.Fatal("expected heart_rate reading")
	}
	if r.Confidence != 1.0 {
		t.Fatalf("expected default confidence 1.0, got %.2f", r.Confidence)
	}
}

func TestBuildKeepsFreshConfidence(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig())
	now := time.Now().UTC()

	p := b.Build(now, []RawReading{
		{SensorID: "occupancy", Value: "vacant", Confidence: 0.9, HasConfidence: true, Timestamp: now.Add(-10 * time.Second)},
	})

	r, _ := p.Reading("occupancy")
	if r.Confidence != 0.9 {
		t.Fatalf("fresh reading should keep confidence 0.9, got %.2f", r.Confidence)
	}
}

func TestBuildDecaysStaleConfidence(t *testing.T) {
	b := NewBuilder(BuilderConfig{FreshFor: 30 * time.Second, DecayTTL: 10 * time.Minute, Floor: 0.05})
	now := time.Now().UTC()

	p := b.Build(now, []RawReading{
		{SensorID: "occupancy", Value: "vacant", Confidence: 1.0, HasConfidence: true, Timestamp: now.Add(-5 * time.Minute)},
	})

	r, _ := p.Reading("occupancy")
	if r.Confidence >= 1.0 {
		t.Fatalf("stale reading should decay, got %.2f", r.Confidence)
	}
	if r.Confidence < 0.05 {
		t.Fatalf("decay should not go below floor, got %.2f", r.Confidence)
	}
}

func TestBuildFloorsVeryStaleReadings(t *testing.T) {
	b := NewBuilder(BuilderConfig{FreshFor: 30 * time.Second, DecayTTL: 10 * time.Minute, Floor: 0.05})
	now := time.Now().UTC()

	p := b.Build(now, []RawReading{
		{SensorID: "place", Value: "home", Confidence: 1.0, HasConfidence: true, Timestamp: now.Add(-time.Hour)},
	})

	r, _ := p.Reading("place")
	if r.Confidence != 0.05 {
		t.Fatalf("expected floor 0.05, got %.2f", r.Confidence)
	}
}

func TestPacketAbsentSensorIsAbsent(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig())
	p := b.Build(time.Now().UTC(), nil)

	if _, ok := p.Reading("heart_rate"); ok {
		t.Fatal("absent sensor should not be present")
	}
	if p.Len() != 0 {
		t.Fatalf("expected empty packet, got %d sensors", p.Len())
	}
}

func TestPacketSensorIDsSorted(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig())
	now := time.Now().UTC()
	p := b.Build(now, []RawReading{
		{SensorID: "stress_level", Value: "low", Timestamp: now},
		{SensorID: "heart_rate", Value: 70, Timestamp: now},
		{SensorID: "occupancy", Value: "occupied", Timestamp: now},
	})

	ids := p.SensorIDs()
	want := []string{"heart_rate", "occupancy", "stress_level"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d]: expected %s, got %s", i, want[i], ids[i])
		}
	}
}

func TestPacketTypedAccessors(t *testing.T) {
	b := NewBuilder(DefaultBuilderConfig())
	now := time.Now().UTC()
	p := b.Build(now, []RawReading{
		{SensorID: "occupancy", Value: "vacant", Timestamp: now},
		{SensorID: "device.smart_light_1.power", Value: true, Timestamp: now},
		{SensorID: "heart_rate", Value: 72, Timestamp: now},
	})

	if s, _, ok := p.String("occupancy"); !ok || s != "vacant" {
		t.Fatalf("String: expected vacant, got %q ok=%v", s, ok)
	}
	if on, _, ok := p.Bool("device.smart_light_1.power"); !ok || !on {
		t.Fatalf("Bool: expected true, got %v ok=%v", on, ok)
	}
	if f, _, ok := p.Float("heart_rate"); !ok || f != 72 {
		t.Fatalf("Float: expected 72, got %v ok=%v", f, ok)
	}
	if _, _, ok := p.String("heart_rate"); ok {
		t.Fatal("String on numeric sensor should report not ok")
	}
}
