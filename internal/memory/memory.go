package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sadaflabs/sadaf/go-controller/internal/oracle"
	"github.com/sadaflabs/sadaf/go-controller/internal/sense"
)

// #region config

// Config holds preference memory knobs.
type Config struct {
	// DupThreshold skips appending a record whose embedding is at least this
	// similar to an existing record with the same action summary and verdict.
	DupThreshold float32
	// QueryK is the default number of precedents retrieved before pass 1.
	QueryK int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DupThreshold: 0.85,
		QueryK:       3,
	}
}

// #endregion config

// #region memory

// Memory is the preference memory: an append-only record of
// (context, suggestion, verdict) tuples retrievable by similarity.
// Retrieval is best-effort: an unavailable embedder or backend degrades to
// an empty result, never a failed cycle.
type Memory struct {
	embedder oracle.Embedder // may be nil
	backend  Backend
	config   Config
}

// New creates a Memory. embedder may be nil; records then store without
// embeddings and QuerySimilar returns nothing.
func New(embedder oracle.Embedder, backend Backend, config Config) *Memory {
	return &Memory{embedder: embedder, backend: backend, config: config}
}

// Record appends one preference record. Idempotent-safe: a near-duplicate
// of an existing record (same summary, same verdict, embedding similarity
// at or above DupThreshold) is silently skipped. Embedding failure degrades
// to an unembedded record, which is still durable and inspectable.
func (m *Memory) Record(ctx context.Context, contextText, actionSummary string, verdict Verdict) error {
	var embedding []float32
	if m.embedder != nil {
		emb, err := m.embedder.Embed(ctx, contextText)
		if err != nil {
			log.Printf("[MEMORY] embed failed, storing without embedding: %v", err)
		} else {
			embedding = emb
		}
	}

	if len(embedding) > 0 && m.config.DupThreshold > 0 {
		if dup, err := m.isDuplicate(ctx, embedding, actionSummary, verdict); err == nil && dup {
			log.Printf("[MEMORY] skipped near-duplicate record: %s", actionSummary)
			return nil
		}
	}

	rec := PreferenceRecord{
		RecordID:      uuid.New().String(),
		Embedding:     embedding,
		ContextText:   contextText,
		ActionSummary: actionSummary,
		Verdict:       verdict,
		CreatedAt:     time.Now().UTC(),
	}
	if err := m.backend.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("record preference: %w", err)
	}
	return nil
}

// QuerySimilar returns up to k past records most similar to the context
// text, best-effort. k <= 0 uses the configured default.
func (m *Memory) QuerySimilar(ctx context.Context, contextText string, k int) []PreferenceRecord {
	if k <= 0 {
		k = m.config.QueryK
	}
	if m.embedder == nil {
		return nil
	}
	emb, err := m.embedder.Embed(ctx, contextText)
	if err != nil {
		log.Printf("[MEMORY] query embed failed, degrading to no precedent: %v", err)
		return nil
	}
	records, err := m.backend.Nearest(ctx, emb, k)
	if err != nil {
		log.Printf("[MEMORY] nearest lookup failed, degrading to no precedent: %v", err)
		return nil
	}
	return records
}

// isDuplicate checks the single nearest record against the threshold.
func (m *Memory) isDuplicate(ctx context.Context, embedding []float32, actionSummary string, verdict Verdict) (bool, error) {
	nearest, err := m.backend.Nearest(ctx, embedding, 1)
	if err != nil || len(nearest) == 0 {
		return false, err
	}
	top := nearest[0]
	return top.Similarity >= m.config.DupThreshold &&
		top.ActionSummary == actionSummary &&
		top.Verdict == verdict, nil
}

// #endregion memory

// #region query-string

// QueryString builds the retrieval query for a packet from the handful of
// fields that characterize the situation. Field order is fixed so the same
// packet always yields the same query.
func QueryString(p sense.ContextPacket) string {
	var parts []string
	if v, _, ok := p.String("activity_status"); ok {
		parts = append(parts, "user activity "+v)
	}
	if v, _, ok := p.String("stress_level"); ok {
		parts = append(parts, "user stress "+v)
	}
	if v, _, ok := p.String("occupancy"); ok {
		parts = append(parts, "room "+v)
	}
	if v, _, ok := p.String("place"); ok {
		parts = append(parts, "user at "+v)
	}
	if len(parts) == 0 {
		return "general user preferences"
	}
	return strings.Join(parts, ", ")
}

// #endregion query-string
