package gate

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sadaflabs/sadaf/go-controller/internal/device"
	"github.com/sadaflabs/sadaf/go-controller/internal/memory"
)

// #region gate

// Gate holds actions pending explicit user confirmation. Every suggestion
// carries a deadline; Accepted, Rejected, and Expired are the only exits,
// and each exit writes exactly one preference record. An expired suggestion
// is treated as rejected for learning purposes but stored distinctly.
type Gate struct {
	config   Config
	recorder Recorder
	notifier Notifier // may be nil

	mu       sync.Mutex
	entries  map[string]*entry // by suggestion id
	byDevice map[string]string // device id -> pending suggestion id

	now func() time.Time // test seam
}

type entry struct {
	sug   Suggestion
	state State
	done  chan State // buffered 1, receives the terminal state once
}

// NewGate creates a Gate. notifier may be nil.
func NewGate(config Config, recorder Recorder, notifier Notifier) *Gate {
	if config.ConfirmTimeout <= 0 {
		config.ConfirmTimeout = DefaultConfig().ConfirmTimeout
	}
	return &Gate{
		config:   config,
		recorder: recorder,
		notifier: notifier,
		entries:  map[string]*entry{},
		byDevice: map[string]string{},
		now:      time.Now,
	}
}

// Submit registers a validated action as pending and returns a ticket for
// awaiting the verdict. A pending suggestion already targeting the same
// device is superseded: it expires immediately and the new one takes its
// place.
func (g *Gate) Submit(action device.ValidatedAction, intentionSummary, rationale, contextText string) *Ticket {
	now := g.now()
	sug := Suggestion{
		ID:               uuid.New().String(),
		DeviceID:         action.DeviceID(),
		Action:           action,
		IntentionSummary: intentionSummary,
		Rationale:        rationale,
		ContextText:      contextText,
		CreatedAt:        now,
		ExpiresAt:        now.Add(g.config.ConfirmTimeout),
	}

	g.mu.Lock()
	if staleID, ok := g.byDevice[sug.DeviceID]; ok {
		g.transitionLocked(staleID, StateExpired, "superseded by newer suggestion")
	}
	g.entries[sug.ID] = &entry{sug: sug, state: StatePending, done: make(chan State, 1)}
	g.byDevice[sug.DeviceID] = sug.ID
	g.mu.Unlock()

	log.Printf("[GATE] pending %s: %s (expires %s)", sug.ID, action.Summary(), sug.ExpiresAt.Format(time.RFC3339))
	if g.notifier != nil {
		g.notifier.Notify(sug)
	}
	return &Ticket{gate: g, sug: sug}
}

// Resolve delivers the user's verdict for a pending suggestion. Verdicts on
// unknown or already-terminal suggestions are errors; the first verdict
// wins.
func (g *Gate) Resolve(suggestionID string, accepted bool) error {
	target := StateRejected
	if accepted {
		target = StateAccepted
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[suggestionID]
	if !ok {
		return fmt.Errorf("no such suggestion %q", suggestionID)
	}
	if e.state != StatePending {
		return fmt.Errorf("suggestion %q already %s", suggestionID, e.state)
	}
	g.transitionLocked(suggestionID, target, "user verdict")
	return nil
}

// Pending returns the pending suggestion for a device, if any.
func (g *Gate) Pending(deviceID string) (Suggestion, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.byDevice[deviceID]
	if !ok {
		return Suggestion{}, false
	}
	return g.entries[id].sug, true
}

// expire moves a pending suggestion to Expired and returns the entry's final
// state, which may differ if a verdict won the race.
func (g *Gate) expire(suggestionID, why string) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[suggestionID]
	if !ok {
		return StateExpired
	}
	if e.state == StatePending {
		g.transitionLocked(suggestionID, StateExpired, why)
	}
	return e.state
}

// transitionLocked moves a pending entry to a terminal state, writes its one
// preference record, and wakes the awaiting ticket. Callers hold g.mu and
// have checked the entry is pending.
func (g *Gate) transitionLocked(suggestionID string, target State, why string) {
	e, ok := g.entries[suggestionID]
	if !ok || e.state != StatePending {
		return
	}
	e.state = target
	if g.byDevice[e.sug.DeviceID] == suggestionID {
		delete(g.byDevice, e.sug.DeviceID)
	}
	delete(g.entries, suggestionID)
	e.done <- target

	log.Printf("[GATE] %s %s: %s (%s)", target, suggestionID, e.sug.Action.Summary(), why)
	go g.record(e.sug, target)
}

// record writes the single preference record for a terminal suggestion.
// Storage failure is logged, never propagated: the verdict already stands.
func (g *Gate) record(sug Suggestion, target State) {
	verdict := memory.VerdictRejected
	switch target {
	case StateAccepted:
		verdict = memory.VerdictAccepted
	case StateExpired:
		verdict = memory.VerdictIgnored
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.recorder.Record(ctx, sug.ContextText, sug.Action.Summary(), verdict); err != nil {
		log.Printf("[GATE] preference record failed for %s: %v", sug.ID, err)
	}
}

// #endregion gate

// #region ticket

// Ticket awaits the verdict for one submitted suggestion.
type Ticket struct {
	gate *Gate
	sug  Suggestion
}

// Suggestion returns the pending suggestion the ticket tracks.
func (t *Ticket) Suggestion() Suggestion { return t.sug }

// Await blocks until the suggestion reaches a terminal state: a user
// verdict, the confirmation deadline, or cancellation of the surrounding
// cycle (which also expires the suggestion).
func (t *Ticket) Await(ctx context.Context) Resolution {
	e := t.entry()
	if e == nil {
		// Already terminal (e.g. superseded before Await); the done channel
		// is buffered so the state is still readable.
		return Resolution{State: StateExpired, Suggestion: t.sug}
	}

	timer := time.NewTimer(time.Until(t.sug.ExpiresAt))
	defer timer.Stop()

	select {
	case s := <-e.done:
		return Resolution{State: s, Suggestion: t.sug}
	case <-timer.C:
		return Resolution{State: t.settle(e, "confirmation timeout"), Suggestion: t.sug}
	case <-ctx.Done():
		return Resolution{State: t.settle(e, "cycle cancelled"), Suggestion: t.sug}
	}
}

// settle expires the suggestion, then defers to a verdict that won the race:
// the done channel is buffered, so a terminal state set just before the
// deadline fired is still there to read.
func (t *Ticket) settle(e *entry, why string) State {
	state := t.gate.expire(t.sug.ID, why)
	select {
	case s := <-e.done:
		return s
	default:
	}
	return state
}

// entry fetches the live entry, nil when already terminal.
func (t *Ticket) entry() *entry {
	t.gate.mu.Lock()
	defer t.gate.mu.Unlock()
	return t.gate.entries[t.sug.ID]
}

// #endregion ticket
