package safety

import (
	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// #region verdict

// Kind enumerates safety verdict outcomes.
type Kind string

const (
	KindAllow   Kind = "allow"
	KindDeny    Kind = "deny"
	KindRewrite Kind = "rewrite"
)

// Verdict is the layer's final decision for one cycle. Produced fresh each
// cycle; never persisted.
type Verdict struct {
	Kind   Kind
	RuleID string // rule that produced a non-allow outcome, empty on allow
	Reason string
	// Rewritten is the replacement action, already re-validated against the
	// schema validator. Set only when Kind == KindRewrite.
	Rewritten device.ValidatedAction
}

// #endregion verdict

// #region outcome

// Outcome is a single rule's decision. A rewrite carries the replacement
// function and parameters; the layer re-validates them before accepting.
type Outcome struct {
	Kind            Kind
	Reason          string
	RewriteFunction string
	RewriteParams   map[string]any
}

// Allow is the zero outcome.
func Allow() Outcome { return Outcome{Kind: KindAllow} }

// Deny rejects the action outright.
func Deny(reason string) Outcome { return Outcome{Kind: KindDeny, Reason: reason} }

// Rewrite replaces the action's function and parameters.
func Rewrite(reason, function string, params map[string]any) Outcome {
	return Outcome{Kind: KindRewrite, Reason: reason, RewriteFunction: function, RewriteParams: params}
}

// #endregion outcome

// #region rule

// Rule is one hard safety rule. Check must be deterministic, inexpensive,
// and side-effect free; every rule runs unconditionally each cycle until
// the first non-allow outcome.
type Rule struct {
	ID    string
	Check func(action device.ValidatedAction, p sense.ContextPacket) Outcome
}

// #endregion rule

// #region config

// Config holds thresholds for the built-in rules.
type Config struct {
	// ProtectedPatterns are device-id substrings that must never be powered
	// off, whatever upstream produced.
	ProtectedPatterns []string
	// TemperatureCeiling caps any "temperature" parameter; higher values are
	// rewritten down to the ceiling.
	TemperatureCeiling float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ProtectedPatterns:  []string{"router", "refrigerator", "fridge", "security_camera"},
		TemperatureCeiling: 60,
	}
}

// #endregion config
