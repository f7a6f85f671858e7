package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// #region schema

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id TEXT NOT NULL,
	packet_ts TEXT NOT NULL,
	directives_json TEXT,
	intention_summary TEXT,
	validator_outcome TEXT,
	safety_verdict TEXT,
	final_verdict TEXT NOT NULL,
	dispatch_outcome TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_cycle ON audit_log(cycle_id);
`

// #endregion schema

// #region entry

// Entry is one cycle's audit row. Every cycle that produced at least a
// directive or an intention gets exactly one row; stage fields that never
// ran stay empty.
type Entry struct {
	CycleID          string
	PacketTimestamp  time.Time
	DirectivesFired  []string // rule ids, trigger order
	IntentionSummary string
	ValidatorOutcome string // "ok" or the rejection error text
	SafetyVerdict    string // "allow" | "deny: ..." | "rewrite: ..."
	FinalVerdict     string // terminal disposition of the cycle
	DispatchOutcome  string
	CreatedAt        time.Time
}

// #endregion entry

// #region log

// Log is the append-only cycle audit trail.
type Log struct {
	db *sql.DB
}

// NewLog creates the audit table if needed and returns a Log.
func NewLog(db *sql.DB) (*Log, error) {
	if _, err := db.Exec(auditSchema); err != nil {
		return nil, fmt.Errorf("migrate audit schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Append writes one entry.
func (l *Log) Append(e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var directives string
	if len(e.DirectivesFired) > 0 {
		data, err := json.Marshal(e.DirectivesFired)
		if err != nil {
			return fmt.Errorf("encode directives: %w", err)
		}
		directives = string(data)
	}

	_, err := l.db.Exec(
		`INSERT INTO audit_log (cycle_id, packet_ts, directives_json, intention_summary,
		 validator_outcome, safety_verdict, final_verdict, dispatch_outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CycleID,
		e.PacketTimestamp.UTC().Format(time.RFC3339Nano),
		nullIfEmpty(directives),
		nullIfEmpty(e.IntentionSummary),
		nullIfEmpty(e.ValidatorOutcome),
		nullIfEmpty(e.SafetyVerdict),
		e.FinalVerdict,
		nullIfEmpty(e.DispatchOutcome),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (l *Log) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(
		`SELECT cycle_id, packet_ts, directives_json, intention_summary,
		 validator_outcome, safety_verdict, final_verdict, dispatch_outcome, created_at
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var packetTS, createdAt string
		var directives, intention, validator, safety, dispatch sql.NullString
		if err := rows.Scan(&e.CycleID, &packetTS, &directives, &intention,
			&validator, &safety, &e.FinalVerdict, &dispatch, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.PacketTimestamp, _ = time.Parse(time.RFC3339Nano, packetTS)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if directives.Valid {
			if err := json.Unmarshal([]byte(directives.String), &e.DirectivesFired); err != nil {
				return nil, fmt.Errorf("decode directives for cycle %s: %w", e.CycleID, err)
			}
		}
		e.IntentionSummary = intention.String
		e.ValidatorOutcome = validator.String
		e.SafetyVerdict = safety.String
		e.DispatchOutcome = dispatch.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total number of audit rows.
func (l *Log) Count() (int, error) {
	var n int
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

// #endregion log

// #region helpers

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
