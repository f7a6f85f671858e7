package safety

import (
	"fmt"
	"log"
	"strings"

	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// #region layer

// Layer runs the hard safety rules over a validated action. Rules evaluate
// in registration order and the first non-allow outcome wins; later rules do
// not run. Safety rules override everything upstream, including rules the
// user has previously accepted. A rewrite is only accepted after the
// replacement passes schema validation again.
type Layer struct {
	rules     []Rule
	validator *device.Validator
}

// NewLayer creates a Layer. validator must be the same validator that
// produced the incoming actions, so rewrites meet the same schema bar.
func NewLayer(validator *device.Validator, rules ...Rule) *Layer {
	l := &Layer{validator: validator}
	for _, r := range rules {
		l.Register(r)
	}
	return l
}

// Register appends a rule. Rules with no id or no check are skipped.
func (l *Layer) Register(r Rule) {
	if r.ID == "" || r.Check == nil {
		log.Printf("[SAFETY] skipping malformed rule %q", r.ID)
		return
	}
	l.rules = append(l.rules, r)
}

// Evaluate returns the layer's verdict for the action in the given context.
func (l *Layer) Evaluate(action device.ValidatedAction, p sense.ContextPacket) Verdict {
	for _, r := range l.rules {
		out := r.Check(action, p)
		switch out.Kind {
		case KindAllow, "":
			continue

		case KindDeny:
			log.Printf("[SAFETY] rule %s denied %s: %s", r.ID, action.Summary(), out.Reason)
			return Verdict{Kind: KindDeny, RuleID: r.ID, Reason: out.Reason}

		case KindRewrite:
			rewritten, err := l.validator.Validate(action.DeviceID(), out.RewriteFunction, out.RewriteParams)
			if err != nil {
				// A rewrite that fails validation degrades to a deny; an
				// unvalidated action must never reach the gate.
				log.Printf("[SAFETY] rule %s rewrite failed validation, denying: %v", r.ID, err)
				return Verdict{
					Kind:   KindDeny,
					RuleID: r.ID,
					Reason: fmt.Sprintf("%s (rewrite failed validation: %v)", out.Reason, err),
				}
			}
			log.Printf("[SAFETY] rule %s rewrote %s -> %s: %s",
				r.ID, action.Summary(), rewritten.Summary(), out.Reason)
			return Verdict{Kind: KindRewrite, RuleID: r.ID, Reason: out.Reason, Rewritten: rewritten}
		}
	}
	return Verdict{Kind: KindAllow}
}

// RuleIDs lists registered rules in evaluation order.
func (l *Layer) RuleIDs() []string {
	ids := make([]string, len(l.rules))
	for i, r := range l.rules {
		ids[i] = r.ID
	}
	return ids
}

// #endregion layer

// #region builtin

var powerOffFunctions = map[string]bool{
	"turn_off":  true,
	"off":       true,
	"power_off": true,
	"disable":   true,
	"shutdown":  true,
}

// Builtin returns the stock safety rules for the given config, in priority
// order.
func Builtin(cfg Config) []Rule {
	return []Rule{
		protectedPowerRule(cfg.ProtectedPatterns),
		temperatureCeilingRule(cfg.TemperatureCeiling),
	}
}

// protectedPowerRule denies powering off devices whose id matches a
// protected pattern. Refrigeration and network gear stay on no matter what
// the reasoner or the user's precedent says.
func protectedPowerRule(patterns []string) Rule {
	return Rule{
		ID: "protected-device-power",
		Check: func(action device.ValidatedAction, _ sense.ContextPacket) Outcome {
			if !powerOffFunctions[action.Function()] {
				return Allow()
			}
			id := strings.ToLower(action.DeviceID())
			for _, pat := range patterns {
				if strings.Contains(id, pat) {
					if pat == "refrigerator" || pat == "fridge" {
						return Deny("refrigeration override")
					}
					return Deny(fmt.Sprintf("protected device %q must stay powered", action.DeviceID()))
				}
			}
			return Allow()
		},
	}
}

// temperatureCeilingRule rewrites any temperature parameter above the
// ceiling down to the ceiling, keeping the rest of the action intact.
func temperatureCeilingRule(ceiling float64) Rule {
	return Rule{
		ID: "temperature-ceiling",
		Check: func(action device.ValidatedAction, _ sense.ContextPacket) Outcome {
			raw, ok := action.Param("temperature")
			if !ok {
				return Allow()
			}
			temp, ok := asFloat(raw)
			if !ok || temp <= ceiling {
				return Allow()
			}
			params := action.Params()
			params["temperature"] = ceiling
			return Rewrite(
				fmt.Sprintf("temperature %.0f exceeds ceiling %.0f", temp, ceiling),
				action.Function(), params)
		},
	}
}

// asFloat widens the numeric types parameters arrive as.
func asFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// #endregion builtin
