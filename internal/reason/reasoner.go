package reason

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/memory"
	"github.com/sadaflabs/sadaf/go-controller/internal/oracle"
	"github.com/sadaflabs/sadaf/go-controller/internal/rules"
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// #region payloads

// pass1Payload is parsed leniently: pass 1 output is explanation-oriented
// and its structured fields are advisory.
type pass1Payload struct {
	Goal           string         `json:"goal"`
	Rationale      string         `json:"rationale"`
	TargetDeviceID string         `json:"target_device_id"`
	Function       string         `json:"function"`
	Parameters     map[string]any `json:"parameters"`
	ShouldSuggest  *bool          `json:"should_suggest"`
}

// pass2Payload is parsed strictly: unknown keys are rejected, because pass 2
// output is untrusted input feeding the validator.
type pass2Payload struct {
	TargetDeviceID string         `json:"target_device_id"`
	Function       string         `json:"function"`
	Parameters     map[string]any `json:"parameters"`
	Confidence     float64        `json:"confidence"`
	ShouldSuggest  *bool          `json:"should_suggest"`
}

// #endregion payloads

// #region reasoner

// Reasoner runs the two-pass reason-then-bind pipeline against a pluggable
// oracle. Pass 1 forms intent in natural language; pass 2 re-emits the
// action in strict machine-checkable form against the device's capability
// schema. Both passes are stateless.
type Reasoner struct {
	oracle   oracle.Oracle
	registry device.CapabilityLookup
}

// NewReasoner creates a Reasoner.
func NewReasoner(o oracle.Oracle, registry device.CapabilityLookup) *Reasoner {
	return &Reasoner{oracle: o, registry: registry}
}

// Reason produces one Intention for the packet, or ErrNoSuggestion when the
// oracle declines to suggest, or a *ReasoningError when the oracle fails or
// its output breaks the structural contract. The cycle is abandoned on
// error; a new attempt requires a new packet.
func (r *Reasoner) Reason(
	ctx context.Context,
	p sense.ContextPacket,
	directives []rules.Directive,
	precedent []memory.PreferenceRecord,
) (Intention, error) {
	// Pass 1: intent formation.
	raw1, err := r.oracle.Generate(ctx, pass1Prompt(p, directives, precedent))
	if err != nil {
		return Intention{}, &ReasoningError{Pass: 1, Detail: "oracle unavailable", Cause: err}
	}
	draft := parsePass1(raw1)
	if draft.ShouldSuggest != nil && !*draft.ShouldSuggest {
		return Intention{}, ErrNoSuggestion
	}

	// Pass 2: schema binding against the drafted device's capability.
	cap, found := r.registry.Capabilities(draft.TargetDeviceID)
	raw2, err := r.oracle.Generate(ctx, pass2Prompt(p, raw1, cap, found))
	if err != nil {
		return Intention{}, &ReasoningError{Pass: 2, Detail: "oracle unavailable", Cause: err}
	}

	bound, err := parsePass2(raw2)
	if err != nil {
		return Intention{}, &ReasoningError{Pass: 2, Detail: "unparseable structured output", Cause: err}
	}
	if bound.ShouldSuggest != nil && !*bound.ShouldSuggest {
		return Intention{}, ErrNoSuggestion
	}

	// Minimal structural contract: a device id and a function name. Anything
	// beyond that is the validator's job.
	if strings.TrimSpace(bound.TargetDeviceID) == "" {
		return Intention{}, &ReasoningError{Pass: 2, Detail: "missing target device id"}
	}
	if strings.TrimSpace(bound.Function) == "" {
		return Intention{}, &ReasoningError{Pass: 2, Detail: "missing function name"}
	}

	params := bound.Parameters
	if params == nil {
		params = map[string]any{}
	}

	// Goal and rationale carry over from pass 1 unmodified.
	return Intention{
		Goal:               draft.Goal,
		TargetDeviceID:     bound.TargetDeviceID,
		ProposedFunction:   bound.Function,
		ProposedParameters: params,
		Rationale:          draft.Rationale,
		Confidence:         bound.Confidence,
	}, nil
}

// #endregion reasoner

// #region parse

// parsePass1 never fails: when the output has no usable JSON, the whole
// text becomes the rationale and the first line the goal.
func parsePass1(text string) pass1Payload {
	if obj, ok := extractJSON(text); ok {
		var p pass1Payload
		if err := json.Unmarshal([]byte(obj), &p); err == nil && (p.Goal != "" || p.Rationale != "") {
			return p
		}
	}
	lines := strings.SplitN(strings.TrimSpace(text), "\n", 2)
	p := pass1Payload{Goal: strings.TrimSpace(lines[0]), Rationale: strings.TrimSpace(text)}
	return p
}

// parsePass2 decodes strictly: the object must parse and carry no unknown
// keys.
func parsePass2(text string) (pass2Payload, error) {
	obj, ok := extractJSON(text)
	if !ok {
		return pass2Payload{}, &ReasoningError{Pass: 2, Detail: "no JSON object in output"}
	}
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.DisallowUnknownFields()
	var p pass2Payload
	if err := dec.Decode(&p); err != nil {
		return pass2Payload{}, err
	}
	return p, nil
}

// #endregion parse
