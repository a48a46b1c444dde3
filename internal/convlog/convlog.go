// Package convlog is the conversation-logging collaborator: a
// write-only sink for the user-visible prompt/response text the scope
// workflow emits. The core never reads it back; if logging fails the
// workflow keeps going.
package convlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Roles for recorded messages.
const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// Log records one side of the scope conversation.
type Log interface {
	Record(role, text string) error
}

// Config holds conversation log configuration.
type Config struct {
	DataDir string
}

// DefaultConfig stores the log alongside the approval contexts under
// ~/.scopegate.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".scopegate")}
}

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Store is a SQLite-backed conversation log.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the conversation log database.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("convlog: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, "conversation.db"))
	if err != nil {
		return nil, fmt.Errorf("convlog: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("convlog: pragma %q: %w", p, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("convlog: migration: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one message.
func (s *Store) Record(role, text string) error {
	if _, err := s.db.Exec(
		`INSERT INTO messages (role, content) VALUES (?, ?)`, role, text,
	); err != nil {
		return fmt.Errorf("convlog: record message: %w", err)
	}
	return nil
}

// Count returns the number of recorded messages. Used by tests and
// diagnostics only — the workflow never reads the log.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("convlog: count messages: %w", err)
	}
	return n, nil
}
