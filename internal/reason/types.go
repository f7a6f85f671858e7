package reason

import (
	"errors"
	"fmt"
)

// #region intention

// Intention is the structured reasoning output for one cycle: what to do
// and why. Goal and Rationale come from pass 1 and are never altered by
// pass 2; the machine-checkable fields come from pass 2.
type Intention struct {
	Goal               string
	TargetDeviceID     string
	ProposedFunction   string
	ProposedParameters map[string]any
	Rationale          string
	Confidence         float64
}

// Summary renders the intention for audit rows and pending-suggestion
// notifications.
func (i Intention) Summary() string {
	return fmt.Sprintf("%s → %s on %s", i.Goal, i.ProposedFunction, i.TargetDeviceID)
}

// #endregion intention

// #region errors

// ErrNoSuggestion means the reasoner concluded nothing is worth proposing
// for this packet. A quiet cycle, not a fault.
var ErrNoSuggestion = errors.New("no suggestion for this packet")

// ReasoningError means the oracle was unavailable or produced output that
// failed the structural contract. The cycle is abandoned, never retried
// with the same packet.
type ReasoningError struct {
	Pass   int
	Detail string
	Cause  error
}

func (e *ReasoningError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("reasoning pass %d: %s: %v", e.Pass, e.Detail, e.Cause)
	}
	return fmt.Sprintf("reasoning pass %d: %s", e.Pass, e.Detail)
}

func (e *ReasoningError) Unwrap() error { return e.Cause }

// #endregion errors
