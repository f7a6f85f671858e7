package pipeline

import (
	"sync"
	"time"
)

// #region budget

// Budget rate-limits proactive suggestions. Once a suggestion surfaces to
// the user, further ones are suppressed until the cooldown elapses,
// whatever their verdict was. Suppression happens after safety and before
// the gate, so a suppressed cycle still audits its safety verdict.
type Budget struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     time.Time

	now func() time.Time // test seam
}

// NewBudget creates a Budget. cooldown <= 0 disables suppression.
func NewBudget(cooldown time.Duration) *Budget {
	return &Budget{cooldown: cooldown, now: time.Now}
}

// Allow reports whether a suggestion may surface now.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cooldown <= 0 || b.last.IsZero() {
		return true
	}
	return b.now().Sub(b.last) >= b.cooldown
}

// Note records that a suggestion surfaced, starting the cooldown.
func (b *Budget) Note() {
	b.mu.Lock()
	b.last = b.now()
	b.mu.Unlock()
}

// #endregion budget
