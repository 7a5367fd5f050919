// Package chronicle archives per-turn summaries to SQLite so a
// session's full memory log survives even after its Redis snapshot is
// deleted.
package chronicle

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tutienrpg/turn-engine/pkg/state"
)

const schema = `
CREATE TABLE IF NOT EXISTS chronicle_entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	turn_number INTEGER NOT NULL,
	summary     TEXT NOT NULL,
	embedding   TEXT,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chronicle_session ON chronicle_entries (session_id, turn_number);
`

// Store is the chronicle archive. Safe for concurrent use; database/sql
// serializes access to the single SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the archive at path. Use
// ":memory:" for an ephemeral archive in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chronicle db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize chronicle schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Append archives one chronicle entry for a session. The embedding is
// stored as JSON text; a nil embedding stores NULL.
func (s *Store) Append(ctx context.Context, sessionID string, entry state.ChronicleEntry) error {
	var embedding any
	if len(entry.Embedding) > 0 {
		data, err := json.Marshal(entry.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		embedding = string(data)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chronicle_entries (session_id, turn_number, summary, embedding, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, entry.TurnNumber, entry.Summary, embedding, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to archive chronicle entry: %w", err)
	}
	return nil
}

// List returns a session's archived entries in turn order.
func (s *Store) List(ctx context.Context, sessionID string) ([]state.ChronicleEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn_number, summary, embedding, created_at FROM chronicle_entries WHERE session_id = ? ORDER BY turn_number, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chronicle: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []state.ChronicleEntry
	for rows.Next() {
		var entry state.ChronicleEntry
		var embedding sql.NullString
		if err := rows.Scan(&entry.TurnNumber, &entry.Summary, &embedding, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chronicle entry: %w", err)
		}
		if embedding.Valid {
			if err := json.Unmarshal([]byte(embedding.String), &entry.Embedding); err != nil {
				return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Delete removes a session's archive.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chronicle_entries WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete chronicle: %w", err)
	}
	return nil
}
