// Package history persists synchronous command executions to a local sqlite
// database so past runs can be inspected per device.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/devfarm/adbkit/internal/config"
	pkgerrors "github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	envHistoryDBPath = "ADBKIT_HISTORY_DB_PATH"
	defaultDirName   = ".adbkit"
	defaultFileName  = "history.sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS command_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	serial TEXT NOT NULL,
	command TEXT NOT NULL,
	tier TEXT NOT NULL,
	timed_out INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	stdout_bytes INTEGER NOT NULL DEFAULT 0,
	stderr_bytes INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
)`

// Entry is one recorded synchronous execution.
type Entry struct {
	ID          int64
	Serial      string
	Command     string
	Tier        string
	TimedOut    bool
	Duration    time.Duration
	StdoutBytes int
	StderrBytes int
	CreatedAt   time.Time
}

// Store is an append-only command history backed by sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database. An empty path falls
// back to ADBKIT_HISTORY_DB_PATH, then ~/.adbkit/history.sqlite.
func Open(path string) (*Store, error) {
	if path == "" {
		var err error
		path, err = resolvePath()
		if err != nil {
			return nil, err
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, pkgerrors.Wrap(err, "history: create db dir")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "history: open sqlite db")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "history: ensure schema")
	}
	return &Store{db: db}, nil
}

func resolvePath() (string, error) {
	if p := config.String(envHistoryDBPath, ""); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", pkgerrors.Wrap(err, "history: resolve home dir")
	}
	return filepath.Join(home, defaultDirName, defaultFileName), nil
}

// Record appends one execution to the history.
func (s *Store) Record(ctx context.Context, e Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_history
		(serial, command, tier, timed_out, duration_ms, stdout_bytes, stderr_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Serial, e.Command, e.Tier, boolToInt(e.TimedOut), e.Duration.Milliseconds(),
		e.StdoutBytes, e.StderrBytes, createdAt.UTC().Format(time.RFC3339Nano))
	return pkgerrors.Wrap(err, "history: insert entry")
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, serial, command, tier, timed_out, duration_ms, stdout_bytes, stderr_bytes, created_at
		FROM command_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "history: query recent")
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e          Entry
			timedOut   int
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&e.ID, &e.Serial, &e.Command, &e.Tier, &timedOut,
			&durationMS, &e.StdoutBytes, &e.StderrBytes, &createdAt); err != nil {
			return nil, pkgerrors.Wrap(err, "history: scan entry")
		}
		e.TimedOut = timedOut != 0
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
