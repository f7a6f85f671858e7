package rules

import (
	"testing"
	"time"

	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

func buildPacket(t *testing.T, values map[string]any) sense.ContextPacket {
	t.Helper()
	now := time.Now().UTC()
	var raws []sense.RawReading
	for id, v := range values {
		raws = append(raws, sense.RawReading{SensorID: id, Value: v, Timestamp: now})
	}
	return sense.NewBuilder(sense.DefaultBuilderConfig()).Build(now, raws)
}

func TestEngineRunsAllRules(t *testing.T) {
	e := NewEngine(
		Rule{ID: "a", Evaluate: func(sense.ContextPacket) (Directive, bool) {
			return Directive{ActionType: "x"}, true
		}},
		Rule{ID: "b", Evaluate: func(sense.ContextPacket) (Directive, bool) {
			return Directive{}, false
		}},
		Rule{ID: "c", Evaluate: func(sense.ContextPacket) (Directive, bool) {
			return Directive{ActionType: "y"}, true
		}},
	)

	ds := e.Evaluate(buildPacket(t, nil))
	if len(ds) != 2 {
		t.Fatalf("expected 2 directives, got %d", len(ds))
	}
	if ds[0].RuleID != "a" || ds[1].RuleID != "c" {
		t.Fatalf("expected registration order a, c; got %s, %s", ds[0].RuleID, ds[1].RuleID)
	}
}

func TestEngineSkipsMalformedRules(t *testing.T) {
	e := NewEngine(
		Rule{ID: "", Evaluate: func(sense.ContextPacket) (Directive, bool) { return Directive{}, true }},
		Rule{ID: "no-eval"},
	)
	if len(e.Rules()) != 0 {
		t.Fatalf("expected no rules registered, got %v", e.Rules())
	}
}

func TestEngineDeterministicForSamePacket(t *testing.T) {
	e := NewEngine(Builtin()...)
	p := buildPacket(t, map[string]any{
		"occupancy":                   "vacant",
		"device.smart_light_1.power":  true,
		"device.smart_geyser_1.power": false,
	})

	first := e.Evaluate(p)
	second := e.Evaluate(p)
	if len(first) != len(second) {
		t.Fatalf("directive count changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].RuleID != second[i].RuleID {
			t.Fatalf("directive %d changed: %s vs %s", i, first[i].RuleID, second[i].RuleID)
		}
	}
}

func TestEmptyRoomLightsOff(t *testing.T) {
	e := NewEngine(Builtin()...)
	p := buildPacket(t, map[string]any{
		"occupancy":                  "vacant",
		"device.smart_light_1.power": true,
		"device.fridge_1.power":      true,
	})

	ds := e.Evaluate(p)
	if len(ds) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(ds))
	}
	d := ds[0]
	if d.RuleID != "empty_room_lights_off" {
		t.Fatalf("expected empty_room_lights_off, got %s", d.RuleID)
	}
	if d.ActionType != "turn_off_room_lights" {
		t.Fatalf("expected turn_off_room_lights, got %s", d.ActionType)
	}
	if len(d.TargetDevices) != 1 || d.TargetDevices[0] != "smart_light_1" {
		t.Fatalf("expected target smart_light_1, got %v", d.TargetDevices)
	}
	if len(d.Facts) == 0 {
		t.Fatal("directive should carry the facts that fired it")
	}
}

func TestEmptyRoomRuleIgnoresOccupiedRoom(t *testing.T) {
	e := NewEngine(Builtin()...)
	p := buildPacket(t, map[string]any{
		"occupancy":                  "occupied",
		"device.smart_light_1.power": true,
	})
	if ds := e.Evaluate(p); len(ds) != 0 {
		t.Fatalf("expected no directives, got %v", ds)
	}
}

func TestEmptyRoomRuleNeedsLightsOn(t *testing.T) {
	e := NewEngine(Builtin()...)
	p := buildPacket(t, map[string]any{
		"occupancy":                  "vacant",
		"device.smart_light_1.power": false,
	})
	if ds := e.Evaluate(p); len(ds) != 0 {
		t.Fatalf("expected no directives when lights already off, got %v", ds)
	}
}

func TestPostWorkoutBathPrep(t *testing.T) {
	e := NewEngine(Builtin()...)
	p := buildPacket(t, map[string]any{
		"activity_status":             "post_workout",
		"place":                       "home",
		"device.smart_geyser_1.power": false,
	})

	ds := e.Evaluate(p)
	if len(ds) != 1 || ds[0].ActionType != "prepare_bath" {
		t.Fatalf("expected prepare_bath directive, got %v", ds)
	}
	if ds[0].TargetDevices[0] != "smart_geyser_1" {
		t.Fatalf("expected smart_geyser_1, got %v", ds[0].TargetDevices)
	}
}

func TestPostWorkoutRuleNeedsHome(t *testing.T) {
	e := NewEngine(Builtin()...)
	p := buildPacket(t, map[string]any{
		"activity_status":             "post_workout",
		"place":                       "gym",
		"device.smart_geyser_1.power": false,
	})
	if ds := e.Evaluate(p); len(ds) != 0 {
		t.Fatalf("expected no directives away from home, got %v", ds)
	}
}

func TestHighStressRelaxation(t *testing.T) {
	e := NewEngine(Builtin()...)
	p := buildPacket(t, map[string]any{
		"stress_level":               "high",
		"device.smart_light_1.power": true,
		"device.speaker_1.power":     false,
	})

	ds := e.Evaluate(p)
	if len(ds) != 1 || ds[0].ActionType != "relaxation_routine" {
		t.Fatalf("expected relaxation_routine directive, got %v", ds)
	}
	if len(ds[0].TargetDevices) != 2 {
		t.Fatalf("expected light and speaker targets, got %v", ds[0].TargetDevices)
	}
}

func TestAbsentSensorNeverFires(t *testing.T) {
	e := NewEngine(Builtin()...)
	// No occupancy, activity, or stress sensors at all.
	p := buildPacket(t, map[string]any{
		"device.smart_light_1.power": true,
	})
	if ds := e.Evaluate(p); len(ds) != 0 {
		t.Fatalf("rules must treat absent sensors as non-matching, got %v", ds)
	}
}
