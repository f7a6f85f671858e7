package gate

import (
	"context"
	"time"

	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/memory"
)

// #region state

// State enumerates the suggestion lifecycle. A suggestion is born Pending
// and reaches exactly one terminal state.
type State string

const (
	StatePending  State = "pending"
	StateAccepted State = "accepted"
	StateRejected State = "rejected"
	StateExpired  State = "expired"
)

// Terminal reports whether s is a terminal state.
func (s State) Terminal() bool { return s != StatePending && s != "" }

// #endregion state

// #region suggestion

// Suggestion is one action awaiting the user's verdict, with enough context
// for the presentation surface to render it.
type Suggestion struct {
	ID               string
	DeviceID         string
	Action           device.ValidatedAction
	IntentionSummary string
	Rationale        string
	ContextText      string
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// #endregion suggestion

// #region resolution

// Resolution is the gate's answer for one suggestion.
type Resolution struct {
	State      State
	Suggestion Suggestion
}

// Dispatchable reports whether the resolved action may proceed to the
// dispatcher. Only an explicit acceptance dispatches; silence never does.
func (r Resolution) Dispatchable() bool { return r.State == StateAccepted }

// #endregion resolution

// #region seams

// Recorder receives exactly one preference record per terminal suggestion.
// Satisfied by *memory.Memory.
type Recorder interface {
	Record(ctx context.Context, contextText, actionSummary string, verdict memory.Verdict) error
}

// Notifier presents a pending suggestion to the user. Implementations must
// not block; the gate calls it synchronously on submit.
type Notifier interface {
	Notify(s Suggestion)
}

// #endregion seams

// #region config

// Config holds gate knobs.
type Config struct {
	// ConfirmTimeout bounds how long a suggestion stays pending before it
	// expires. Always enforced; there is no wait-forever mode.
	ConfirmTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{ConfirmTimeout: 2 * time.Minute}
}

// #endregion config
