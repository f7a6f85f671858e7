package memory

import (
	"context"
	"time"
)

// #region verdict

// Verdict is the user's decision on a suggestion.
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
	// VerdictIgnored records a suggestion that expired without an explicit
	// decision. Equivalent to rejected for retrieval weighting, distinct in
	// storage so the history stays reconstructible.
	VerdictIgnored Verdict = "ignored"
)

// #endregion verdict

// #region record

// PreferenceRecord is the durable artifact of one decision cycle:
// what the context looked like, what was suggested, what the user decided.
// Append-only; never deleted by this layer.
type PreferenceRecord struct {
	RecordID      string
	Embedding     []float32
	ContextText   string
	ActionSummary string
	Verdict       Verdict
	CreatedAt     time.Time

	// Similarity is populated on query results only.
	Similarity float32
}

// #endregion record

// #region backend

// Backend is the nearest-neighbor store the preference memory sits on.
// Implementations must be safe for concurrent callers: Nearest sees a
// consistent snapshot and Upsert is atomic per record.
type Backend interface {
	Upsert(ctx context.Context, rec PreferenceRecord) error
	Nearest(ctx context.Context, embedding []float32, k int) ([]PreferenceRecord, error)
}

// #endregion backend
