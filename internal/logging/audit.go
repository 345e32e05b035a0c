// Package logging keeps the append-only audit trail of engine events.
package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// #region audit-log
// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// AuditLog persists engine events in SQLite. It shares the state store's database.
type AuditLog struct {
	db *sql.DB
}

// NewAuditLog creates the audit_log table if needed and returns a log.
func NewAuditLog(db *sql.DB) (*AuditLog, error) {
	a := &AuditLog{db: db}
	if err := a.init(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AuditLog) init() error {
	_, err := a.db.Exec(`CREATE TABLE IF NOT EXISTS audit_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  TEXT NOT NULL,
		revision    INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		decision    TEXT,
		response    TEXT,
		stage       TEXT,
		emergency   TEXT,
		reason      TEXT,
		created_at  TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create audit_log: %w", err)
	}
	return nil
}

// #endregion audit-log

// #region record
// Record appends an event to the audit_log table.
func (a *AuditLog) Record(ctx context.Context, e Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO audit_log (session_id, revision, kind, decision, response, stage, emergency, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID,
		e.Revision,
		string(e.Kind),
		nullIfEmpty(e.Decision),
		nullIfEmpty(e.Response),
		nullIfEmpty(e.Stage),
		nullIfEmpty(e.Emergency),
		nullIfEmpty(e.Reason),
		e.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// #endregion record

// #region events
// Events returns every event of a session in insertion order.
func (a *AuditLog) Events(ctx context.Context, sessionID string) ([]Event, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT session_id, revision, kind, decision, response, stage, emergency, reason, created_at
		 FROM audit_log WHERE session_id = ? ORDER BY id ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var kind, created string
		var dec, resp, stage, emerg, reason sql.NullString
		if err := rows.Scan(&e.SessionID, &e.Revision, &kind, &dec, &resp, &stage, &emerg, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Kind = EventKind(kind)
		e.Decision = dec.String
		e.Response = resp.String
		e.Stage = stage.String
		e.Emergency = emerg.String
		e.Reason = reason.String
		at, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		e.CreatedAt = at
		events = append(events, e)
	}
	return events, rows.Err()
}

// Sessions summarizes the sessions in the log, most recent activity first.
func (a *AuditLog) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT session_id, COUNT(*), MIN(created_at), MAX(created_at)
		 FROM audit_log GROUP BY session_id ORDER BY MAX(id) DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		var first, last string
		if err := rows.Scan(&s.SessionID, &s.Events, &first, &last); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var err error
		if s.FirstAt, err = time.Parse(time.RFC3339Nano, first); err != nil {
			return nil, fmt.Errorf("parse first created_at %q: %w", first, err)
		}
		if s.LastAt, err = time.Parse(time.RFC3339Nano, last); err != nil {
			return nil, fmt.Errorf("parse last created_at %q: %w", last, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// #endregion events

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
