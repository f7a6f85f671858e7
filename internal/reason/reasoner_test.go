package reason

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

type scriptOracle struct {
	outputs []string
	errs    []error
	calls   int
}

func (s *scriptOracle) Generate(_ context.Context, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.outputs) {
		return "", errors.New("script exhausted")
	}
	return s.outputs[i], nil
}

func testPacket(t *testing.T) sense.ContextPacket {
	t.Helper()
	now := time.Now().UTC()
	return sense.NewBuilder(sense.DefaultBuilderConfig()).Build(now, []sense.RawReading{
		{SensorID: "occupancy", Value: "vacant", Timestamp: now},
		{SensorID: "device.smart_light_1.power", Value: true, Timestamp: now},
	})
}

func lightLookup() device.StaticLookup {
	return device.StaticLookup{
		"smart_light_1": {
			Functions: []string{"turn_on", "turn_off", "set_brightness"},
			Parameters: map[string]device.ParamSpec{
				"brightness": {Min: 0, Max: 100, HasRange: true},
			},
		},
	}
}

const pass1LightsOff = `{"goal": "save energy in the empty room", "rationale": "Room is vacant and the light is on.", "target_device_id": "smart_light_1", "function": "turn_off", "parameters": {}, "should_suggest": true}`

func TestReasonHappyPath(t *testing.T) {
	oracle := &scriptOracle{outputs: []string{
		pass1LightsOff,
		`{"target_device_id": "smart_light_1", "function": "turn_off", "parameters": {}, "confidence": 0.9, "should_suggest": true}`,
	}}
	r := NewReasoner(oracle, lightLookup())

	got, err := r.Reason(context.Background(), testPacket(t), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TargetDeviceID != "smart_light_1" || got.ProposedFunction != "turn_off" {
		t.Fatalf("unexpected intention: %+v", got)
	}
	if got.Goal != "save energy in the empty room" {
		t.Fatalf("goal should carry over from pass 1, got %q", got.Goal)
	}
	if got.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %.2f", got.Confidence)
	}
	if oracle.calls != 2 {
		t.Fatalf("expected exactly 2 oracle calls, got %d", oracle.calls)
	}
}

func TestReasonNoSuggestionStopsAfterPassOne(t *testing.T) {
	oracle := &scriptOracle{outputs: []string{
		`{"goal": "nothing", "rationale": "all quiet", "should_suggest": false}`,
	}}
	r := NewReasoner(oracle, lightLookup())

	_, err := r.Reason(context.Background(), testPacket(t), nil, nil)
	if !errors.Is(err, ErrNoSuggestion) {
		t.Fatalf("expected ErrNoSuggestion, got %v", err)
	}
	if oracle.calls != 1 {
		t.Fatalf("pass 2 should not run, got %d calls", oracle.calls)
	}
}

func TestReasonLenientPassOneParsing(t *testing.T) {
	oracle := &scriptOracle{outputs: []string{
		"The room is empty.\nI would turn the light off to save power.",
		`{"target_device_id": "smart_light_1", "function": "turn_off", "parameters": {}, "confidence": 0.5, "should_suggest": true}`,
	}}
	r := NewReasoner(oracle, lightLookup())

	got, err := r.Reason(context.Background(), testPacket(t), nil, nil)
	if err != nil {
		t.Fatalf("free-form pass 1 must not fail the cycle: %v", err)
	}
	if got.Goal != "The room is empty." {
		t.Fatalf("expected first line as goal, got %q", got.Goal)
	}
}

func TestReasonStrictPassTwoRejectsUnknownKeys(t *testing.T) {
	oracle := &scriptOracle{outputs: []string{
		pass1LightsOff,
		`{"target_device_id": "smart_light_1", "function": "turn_off", "parameters": {}, "confidence": 0.9, "should_suggest": true, "mood": "helpful"}`,
	}}
	r := NewReasoner(oracle, lightLookup())

	_, err := r.Reason(context.Background(), testPacket(t), nil, nil)
	var rerr *ReasoningError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ReasoningError, got %v", err)
	}
	if rerr.Pass != 2 {
		t.Fatalf("expected pass 2 failure, got pass %d", rerr.Pass)
	}
}

func TestReasonOracleFailureIsReasoningError(t *testing.T) {
	oracle := &scriptOracle{errs: []error{errors.New("connection refused")}}
	r := NewReasoner(oracle, lightLookup())

	_, err := r.Reason(context.Background(), testPacket(t), nil, nil)
	var rerr *ReasoningError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ReasoningError, got %v", err)
	}
	if rerr.Pass != 1 {
		t.Fatalf("expected pass 1 failure, got pass %d", rerr.Pass)
	}
}

func TestReasonMissingFunctionFailsContract(t *testing.T) {
	oracle := &scriptOracle{outputs: []string{
		pass1LightsOff,
		`{"target_device_id": "smart_light_1", "function": "", "parameters": {}, "confidence": 0.9, "should_suggest": true}`,
	}}
	r := NewReasoner(oracle, lightLookup())

	_, err := r.Reason(context.Background(), testPacket(t), nil, nil)
	var rerr *ReasoningError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ReasoningError, got %v", err)
	}
}

func TestReasonToleratesProseAroundJSON(t *testing.T) {
	oracle := &scriptOracle{outputs: []string{
		pass1LightsOff,
		"Here is the action:\n```json\n" +
			`{"target_device_id": "smart_light_1", "function": "turn_off", "parameters": {}, "confidence": 0.8, "should_suggest": true}` +
			"\n```\n",
	}}
	r := NewReasoner(oracle, lightLookup())

	got, err := r.Reason(context.Background(), testPacket(t), nil, nil)
	if err != nil {
		t.Fatalf("fenced JSON should parse: %v", err)
	}
	if got.ProposedFunction != "turn_off" {
		t.Fatalf("unexpected function %q", got.ProposedFunction)
	}
}
