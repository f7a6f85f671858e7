package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema

const preferenceSchema = `
CREATE TABLE IF NOT EXISTS preference_records (
	record_id      TEXT PRIMARY KEY,
	embedding      BLOB,
	context_text   TEXT NOT NULL,
	action_summary TEXT NOT NULL,
	verdict        TEXT NOT NULL,
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_preference_created
ON preference_records(created_at);
`

// #endregion schema

// #region store

// SQLiteStore is the Backend implementation over SQLite. Embeddings are
// little-endian float32 BLOBs; similarity is computed in process, which is
// fine at the scale of one household's preference history.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the preference_records table if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(preferenceSchema); err != nil {
		return nil, fmt.Errorf("migrate preference store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// OpenDB opens a SQLite database in WAL mode for any of the stores that
// share it (preferences, device registry, audit).
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	return db, nil
}

// Upsert implements Backend. Appends one record; never updates in place.
func (s *SQLiteStore) Upsert(ctx context.Context, rec PreferenceRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preference_records
		 (record_id, embedding, context_text, action_summary, verdict, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RecordID,
		encodeVector(rec.Embedding),
		rec.ContextText,
		rec.ActionSummary,
		string(rec.Verdict),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert preference record: %w", err)
	}
	return nil
}

// Nearest implements Backend: up to k records by descending cosine
// similarity, ties broken most-recent-first. Records whose embedding length
// differs from the query (or is empty) score 0 rather than erroring, so
// history written under an older embedder still loads.
func (s *SQLiteStore) Nearest(ctx context.Context, embedding []float32, k int) ([]PreferenceRecord, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, embedding, context_text, action_summary, verdict, created_at
		 FROM preference_records`)
	if err != nil {
		return nil, fmt.Errorf("query preference records: %w", err)
	}
	defer rows.Close()

	var records []PreferenceRecord
	for rows.Next() {
		var rec PreferenceRecord
		var blob []byte
		var verdict, createdStr string
		if err := rows.Scan(&rec.RecordID, &blob, &rec.ContextText, &rec.ActionSummary, &verdict, &createdStr); err != nil {
			return nil, fmt.Errorf("scan preference record: %w", err)
		}
		rec.Embedding = decodeVector(blob)
		rec.Verdict = Verdict(verdict)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		rec.Similarity = cosineSimilarity(embedding, rec.Embedding)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Similarity != records[j].Similarity {
			return records[i].Similarity > records[j].Similarity
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if len(records) > k {
		records = records[:k]
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM preference_records`).Scan(&n)
	return n, err
}

// #endregion store

// #region vector-encoding

func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// cosineSimilarity returns 0 for zero-length or mismatched vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// #endregion vector-encoding
