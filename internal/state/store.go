package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region store-interface
// StateKey is the fixed key of the single active session record.
const StateKey = "labor_state"

// ErrStaleState is returned when a save was computed from a revision that is
// no longer the stored one.
var ErrStaleState = errors.New("stale labor state")

// Store persists the single active LaborState.
// Load returns (nil, nil) when no session exists.
type Store interface {
	Load(ctx context.Context) (*LaborState, error)
	Save(ctx context.Context, s LaborState) error
	Clear(ctx context.Context) error
}

// checkRevision enforces that next directly follows the stored record.
// Revision 0 starts a new session and replaces whatever is stored.
func checkRevision(found bool, curSession string, curRev int64, next LaborState) error {
	if next.Revision == 0 {
		return nil
	}
	if !found || curSession != next.SessionID || curRev != next.Revision-1 {
		return fmt.Errorf("%w: have revision %d of %q, saving revision %d of %q",
			ErrStaleState, curRev, curSession, next.Revision, next.SessionID)
	}
	return nil
}

// #endregion store-interface

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS state_versions (
	session_id    TEXT NOT NULL,
	revision      INTEGER NOT NULL,
	record_json   TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (session_id, revision)
);

CREATE TABLE IF NOT EXISTS active_state (
	state_key     TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	revision      INTEGER NOT NULL,
	FOREIGN KEY (session_id, revision) REFERENCES state_versions(session_id, revision)
);
`

// #endregion schema

// #region store-struct
// SQLiteStore keeps every committed revision of a session and points the
// fixed state key at the latest one.
type SQLiteStore struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewSQLiteStore opens a SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection serializes writers and keeps the read-check-write in Save atomic.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region load
// Load reads the active session record.
func (s *SQLiteStore) Load(ctx context.Context) (*LaborState, error) {
	var recJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT v.record_json FROM active_state a
		 JOIN state_versions v ON v.session_id = a.session_id AND v.revision = a.revision
		 WHERE a.state_key = ?`, StateKey,
	).Scan(&recJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active: %w", err)
	}
	var rec LaborState
	if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &rec, nil
}

// #endregion load

// #region save
// Save inserts a new revision and moves the active pointer atomically.
func (s *SQLiteStore) Save(ctx context.Context, rec LaborState) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var curSession string
	var curRev int64
	found := true
	err = tx.QueryRowContext(ctx,
		`SELECT session_id, revision FROM active_state WHERE state_key = ?`, StateKey,
	).Scan(&curSession, &curRev)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return fmt.Errorf("get active: %w", err)
	}
	if err := checkRevision(found, curSession, curRev, rec); err != nil {
		return err
	}

	if rec.Revision == 0 && found {
		// A new session replaces the previous one entirely.
		if _, err := tx.ExecContext(ctx, `DELETE FROM active_state WHERE state_key = ?`, StateKey); err != nil {
			return fmt.Errorf("reset active: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM state_versions WHERE session_id = ?`, curSession); err != nil {
			return fmt.Errorf("reset versions: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO state_versions (session_id, revision, record_json, created_at)
		 VALUES (?, ?, ?, ?)`,
		rec.SessionID, rec.Revision, string(recJSON), rec.LastUpdated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO active_state (state_key, session_id, revision) VALUES (?, ?, ?)
		 ON CONFLICT(state_key) DO UPDATE SET session_id = excluded.session_id, revision = excluded.revision`,
		StateKey, rec.SessionID, rec.Revision,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion save

// #region clear
// Clear removes the active pointer and every stored revision of that session.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var sessionID string
	err = tx.QueryRowContext(ctx,
		`SELECT session_id FROM active_state WHERE state_key = ?`, StateKey,
	).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get active: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM active_state WHERE state_key = ?`, StateKey); err != nil {
		return fmt.Errorf("delete active: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM state_versions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}
	return tx.Commit()
}

// #endregion clear

// #region list-versions
// ListVersions returns every stored revision of a session, oldest first.
func (s *SQLiteStore) ListVersions(ctx context.Context, sessionID string) ([]LaborState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM state_versions WHERE session_id = ? ORDER BY revision ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []LaborState
	for rows.Next() {
		var recJSON string
		if err := rows.Scan(&recJSON); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var rec LaborState
		if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal state: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions
