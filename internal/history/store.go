package history

import (
	"context"
	"database/sql"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	name     TEXT PRIMARY KEY,
	saved_at INTEGER NOT NULL,
	body     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_saved_at ON conversations(saved_at);
`

// Store persists Records in a sqlite table: the same external JSON blob
// the teacher's internal/session wrote one-file-per-session, plus
// indexed name/saved_at columns for fast /history listing (SPEC_FULL.md
// §7 "Persisted history format").
type Store struct {
	db *sql.DB
}

// Open creates or opens the sqlite database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save upserts r by its (sanitized) name.
func (s *Store) Save(ctx context.Context, r Record) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (name, saved_at, body) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET saved_at = excluded.saved_at, body = excluded.body`,
		r.Name, r.SavedAt, string(body),
	)
	if err != nil {
		return fmt.Errorf("failed to save history record: %w", err)
	}
	return nil
}

// Load retrieves a Record by name.
func (s *Store) Load(ctx context.Context, name string) (Record, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM conversations WHERE name = ?`, SanitizeName(name)).Scan(&body)
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("no saved conversation named %q", name)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load history record: %w", err)
	}

	var r Record
	if err := json.UnmarshalFromString(body, &r); err != nil {
		return Record{}, fmt.Errorf("failed to parse stored history record: %w", err)
	}
	return r, nil
}

// List returns every saved conversation's lightweight metadata, newest
// first.
func (s *Store) List(ctx context.Context) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, saved_at FROM conversations ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var metas []Meta
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.Name, &m.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Delete removes a saved conversation by name.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE name = ?`, SanitizeName(name))
	if err != nil {
		return fmt.Errorf("failed to delete history record: %w", err)
	}
	return nil
}
