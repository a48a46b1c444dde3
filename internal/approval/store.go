package approval

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports a context_id with no stored snapshot — a
// recoverable, user-correctable condition, not a fault.
var ErrNotFound = errors.New("approval context not found")

// ContextStore is the only persistence boundary the gate requires:
// an upsert-capable key-value store with exactly three operations.
// Implementations must provide read-your-writes consistency for a
// single context_id.
type ContextStore interface {
	Store(ctx *Context) error
	Retrieve(contextID string) (*Context, error)
	UpdateStatus(contextID string, status Status) error
}

// Config holds approval store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig stores contexts under ~/.scopegate.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".scopegate")}
}

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLiteStore is the production ContextStore. The scope boundary
// snapshot is stored as a JSON column; the queryable fields get their
// own columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the approval context database and
// runs migrations.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("approval: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, "approvals.db"))
	if err != nil {
		return nil, fmt.Errorf("approval: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("approval: pragma %q: %w", p, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS approval_contexts (
			context_id TEXT PRIMARY KEY,
			complexity REAL    NOT NULL,
			team_size  INTEGER NOT NULL,
			velocity   REAL    NOT NULL,
			status     TEXT    NOT NULL,
			boundary   TEXT    NOT NULL,
			created_at TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_contexts_status  ON approval_contexts(status);
		CREATE INDEX IF NOT EXISTS idx_contexts_created ON approval_contexts(created_at DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("approval: migration: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Store upserts a context snapshot. Last write wins — approval is a
// single-human action, so concurrent resumes are not deduplicated.
func (s *SQLiteStore) Store(ctx *Context) error {
	boundary, err := json.Marshal(ctx.Boundary)
	if err != nil {
		return fmt.Errorf("approval: marshal boundary: %w", err)
	}

	if _, err := s.db.Exec(`
		INSERT INTO approval_contexts
			(context_id, complexity, team_size, velocity, status, boundary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(context_id) DO UPDATE SET
			complexity = excluded.complexity,
			team_size  = excluded.team_size,
			velocity   = excluded.velocity,
			status     = excluded.status,
			boundary   = excluded.boundary
	`, ctx.ContextID, ctx.Complexity, ctx.TeamSize, ctx.Velocity,
		string(ctx.Status), string(boundary), ctx.CreatedAt,
	); err != nil {
		return fmt.Errorf("approval: store context %s: %w", ctx.ContextID, err)
	}
	return nil
}

// Retrieve loads a context snapshot by id, or ErrNotFound.
func (s *SQLiteStore) Retrieve(contextID string) (*Context, error) {
	row := s.db.QueryRow(`
		SELECT context_id, complexity, team_size, velocity, status, boundary, created_at
		FROM approval_contexts WHERE context_id = ?
	`, contextID)

	var (
		ctx      Context
		status   string
		boundary string
	)
	err := row.Scan(&ctx.ContextID, &ctx.Complexity, &ctx.TeamSize,
		&ctx.Velocity, &status, &boundary, &ctx.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contextID)
	}
	if err != nil {
		return nil, fmt.Errorf("approval: retrieve context %s: %w", contextID, err)
	}

	ctx.Status = Status(status)
	if err := json.Unmarshal([]byte(boundary), &ctx.Boundary); err != nil {
		return nil, fmt.Errorf("approval: unmarshal boundary for %s: %w", contextID, err)
	}
	return &ctx, nil
}

// UpdateStatus advances a stored context's lifecycle state.
func (s *SQLiteStore) UpdateStatus(contextID string, status Status) error {
	res, err := s.db.Exec(`
		UPDATE approval_contexts SET status = ? WHERE context_id = ?
	`, string(status), contextID)
	if err != nil {
		return fmt.Errorf("approval: update status for %s: %w", contextID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, contextID)
	}
	return nil
}

// ListAwaiting returns all contexts still waiting for approval, newest
// first. This is outside the three-operation gate boundary — it serves
// the status surface only.
func (s *SQLiteStore) ListAwaiting() ([]Context, error) {
	rows, err := s.db.Query(`
		SELECT context_id, complexity, team_size, velocity, status, boundary, created_at
		FROM approval_contexts
		WHERE status = ?
		ORDER BY created_at DESC
	`, string(StatusAwaitingApproval))
	if err != nil {
		return nil, fmt.Errorf("approval: list awaiting: %w", err)
	}
	defer rows.Close()

	var out []Context
	for rows.Next() {
		var (
			ctx      Context
			status   string
			boundary string
		)
		if err := rows.Scan(&ctx.ContextID, &ctx.Complexity, &ctx.TeamSize,
			&ctx.Velocity, &status, &boundary, &ctx.CreatedAt); err != nil {
			return nil, fmt.Errorf("approval: scan context: %w", err)
		}
		ctx.Status = Status(status)
		if err := json.Unmarshal([]byte(boundary), &ctx.Boundary); err != nil {
			return nil, fmt.Errorf("approval: unmarshal boundary for %s: %w", ctx.ContextID, err)
		}
		out = append(out, ctx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("approval: list awaiting: %w", err)
	}
	return out, nil
}

// ensure interface compliance
var _ ContextStore = (*SQLiteStore)(nil)
