package rules

import (
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// #region directive

// Directive is a rule-triggered candidate suggestion. Purely advisory input
// to the reasoner; never dispatched directly.
type Directive struct {
	RuleID        string
	ActionType    string
	TargetDevices []string // sorted, deterministic
	Facts         []string // supporting facts, deterministic order
}

// #endregion directive

// #region rule

// Rule is a pure predicate over a ContextPacket plus the directive it
// proposes when triggered. Evaluate must be deterministic and side-effect
// free; a rule whose required sensor is absent returns ok=false, never an
// error.
type Rule struct {
	ID          string
	Description string
	Evaluate    func(p sense.ContextPacket) (Directive, bool)
}

// #endregion rule
