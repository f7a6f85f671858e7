package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/reason"
	"github.com/sadaflabs/sadaf/go-controller/internal/rules"
	"github.com/sadaflabs/sadaf/go-controller/internal/safety"
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// #region result

// Result is the deterministic-stage output of one replayed cycle.
type Result struct {
	Directives []string // rule ids, trigger order
	Verdict    string   // "validated" | "no_suggestion" | "schema_reject: ..." | "safety_denied: ..." | "reasoning_error: ..."
	ActionJSON string   // canonical JSON of the post-safety action, empty unless validated
}

// #endregion result

// #region oracle

// scriptedOracle replays recorded outputs in order. Calls past the end
// fail, which surfaces fixtures with too few recorded outputs.
type scriptedOracle struct {
	outputs []string
	next    int
}

func (s *scriptedOracle) Generate(_ context.Context, _ string) (string, error) {
	if s.next >= len(s.outputs) {
		return "", fmt.Errorf("fixture exhausted after %d oracle outputs", len(s.outputs))
	}
	out := s.outputs[s.next]
	s.next++
	return out, nil
}

// #endregion oracle

// #region harness

// Replay runs a fixture's packet through the deterministic pipeline stages
// (packet build, rules, reasoning with the recorded oracle outputs, schema
// validation, safety) entirely in memory. Gate, dispatch, and memory are
// out of scope: their outcomes depend on the user and the clock.
func Replay(f *Fixture) (Result, error) {
	builder := sense.NewBuilder(sense.DefaultBuilderConfig())
	packet := builder.Build(f.Packet.Timestamp, f.Packet.RawReadings())

	engine := rules.NewEngine(rules.Builtin()...)
	directives := engine.Evaluate(packet)

	res := Result{}
	for _, d := range directives {
		res.Directives = append(res.Directives, d.RuleID)
	}

	lookup := f.Lookup()
	reasoner := reason.NewReasoner(&scriptedOracle{outputs: f.OracleOutputs}, lookup)
	intention, err := reasoner.Reason(context.Background(), packet, directives, nil)
	switch {
	case errors.Is(err, reason.ErrNoSuggestion):
		res.Verdict = "no_suggestion"
		return res, nil
	case err != nil:
		res.Verdict = "reasoning_error: " + err.Error()
		return res, nil
	}

	validator := device.NewValidator(lookup)
	action, err := validator.Validate(intention.TargetDeviceID, intention.ProposedFunction, intention.ProposedParameters)
	if err != nil {
		res.Verdict = "schema_reject: " + err.Error()
		return res, nil
	}

	layer := safety.NewLayer(validator, safety.Builtin(safety.DefaultConfig())...)
	verdict := layer.Evaluate(action, packet)
	switch verdict.Kind {
	case safety.KindDeny:
		res.Verdict = "safety_denied: " + verdict.Reason
		return res, nil
	case safety.KindRewrite:
		action = verdict.Rewritten
	}

	data, err := json.Marshal(action)
	if err != nil {
		return Result{}, fmt.Errorf("encode action: %w", err)
	}
	res.Verdict = "validated"
	res.ActionJSON = string(data)
	return res, nil
}

// Verify replays the fixture twice and checks both runs agree byte for
// byte, then checks the fixture's expected outputs when present.
func Verify(f *Fixture) error {
	first, err := Replay(f)
	if err != nil {
		return err
	}
	second, err := Replay(f)
	if err != nil {
		return err
	}
	if !equalResults(first, second) {
		return fmt.Errorf("replay is not deterministic: %+v vs %+v", first, second)
	}

	if f.Expected == nil {
		return nil
	}
	if f.Expected.Verdict != "" && first.Verdict != f.Expected.Verdict {
		return fmt.Errorf("verdict mismatch: got %q, want %q", first.Verdict, f.Expected.Verdict)
	}
	if f.Expected.Directives != nil && !equalStrings(first.Directives, f.Expected.Directives) {
		return fmt.Errorf("directives mismatch: got %v, want %v", first.Directives, f.Expected.Directives)
	}
	if len(f.Expected.Action) > 0 {
		want, err := canonicalJSON(f.Expected.Action)
		if err != nil {
			return fmt.Errorf("expected action: %w", err)
		}
		got, err := canonicalJSON(json.RawMessage(first.ActionJSON))
		if err != nil {
			return fmt.Errorf("replayed action: %w", err)
		}
		if got != want {
			return fmt.Errorf("action mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

// #endregion harness

// #region helpers

func equalResults(a, b Result) bool {
	return a.Verdict == b.Verdict && a.ActionJSON == b.ActionJSON && equalStrings(a.Directives, b.Directives)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// canonicalJSON re-encodes via map so key order and whitespace normalize.
func canonicalJSON(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// #endregion helpers
