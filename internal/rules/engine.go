package rules

import (
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// #region engine

// Engine evaluates registered rules against a packet. Rules run
// independently and in full each cycle (no early exit); directive order is
// registration order, stable and deterministic, which downstream prompt
// construction depends on.
type Engine struct {
	rules []Rule
}

// NewEngine creates an Engine with the given rules in registration order.
func NewEngine(rules ...Rule) *Engine {
	e := &Engine{}
	for _, r := range rules {
		e.Register(r)
	}
	return e
}

// Register appends a rule. Registration order defines evaluation order.
func (e *Engine) Register(r Rule) {
	if r.ID == "" || r.Evaluate == nil {
		return
	}
	e.rules = append(e.rules, r)
}

// Evaluate runs every rule against the packet and returns the triggered
// directives in registration order.
func (e *Engine) Evaluate(p sense.ContextPacket) []Directive {
	var out []Directive
	for _, r := range e.rules {
		d, ok := r.Evaluate(p)
		if !ok {
			continue
		}
		d.RuleID = r.ID
		out = append(out, d)
	}
	return out
}

// Rules returns the registered rule ids in evaluation order.
func (e *Engine) Rules() []string {
	ids := make([]string, len(e.rules))
	for i, r := range e.rules {
		ids[i] = r.ID
	}
	return ids
}

// #endregion engine
