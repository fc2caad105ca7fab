// Package sqlite provides a SQLite-backed SessionStore. Checkpoints
// live in a single sessions table; the version compare-and-swap is
// enforced with a conditional UPDATE so concurrent writers cannot
// interleave.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/elicit/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	next_node  TEXT NOT NULL,
	state      TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Store implements ports.SessionStore using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and prepares the schema.
// WAL mode keeps readers from blocking the writer.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("preparing schema: %w", err)
	}

	return &Store{db: db}, nil
}

// NewFromDB wraps an existing database handle. The caller keeps
// ownership of the handle's lifecycle.
func NewFromDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("preparing schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save persists the checkpoint. Version 1 inserts a fresh row; later
// versions update only when the stored version is exactly one behind.
func (s *Store) Save(ctx context.Context, cp *domain.Checkpoint) error {
	if cp.SessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	updatedAt := cp.UpdatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00")

	if cp.Version == 1 {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO sessions (session_id, next_node, state, version, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			cp.SessionID, cp.NextNode, string(stateJSON), cp.Version, updatedAt,
		)
		if err != nil {
			// A UNIQUE violation means someone else created the session first.
			return fmt.Errorf("session %q already exists at some version: %w",
				cp.SessionID, domain.ErrStaleCheckpoint)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions
		 SET next_node = ?, state = ?, version = ?, updated_at = ?
		 WHERE session_id = ? AND version = ?`,
		cp.NextNode, string(stateJSON), cp.Version, updatedAt,
		cp.SessionID, cp.Version-1,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %q save requested version %d: %w",
			cp.SessionID, cp.Version, domain.ErrStaleCheckpoint)
	}
	return nil
}

// Load retrieves the checkpoint.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	var (
		cp        domain.Checkpoint
		stateJSON string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, next_node, state, version, updated_at
		 FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&cp.SessionID, &cp.NextNode, &stateJSON, &cp.Version, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return nil, fmt.Errorf("unmarshaling state: %w", err)
	}
	if err := cp.UpdatedAt.UnmarshalText([]byte(updatedAt)); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &cp, nil
}

// Delete removes the session row.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// List returns all stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM sessions ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
