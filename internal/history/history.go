// Package history stores per-output size summaries of past builds in
// sqlite so a build can report how much each bundle grew or shrank.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// Output is one bundle's sizes in one build.
type Output struct {
	Path   string
	Raw    int
	Final  int
	Gzip   int
	Brotli int
}

// Build is one recorded run.
type Build struct {
	ID      string
	At      time.Time
	Status  string
	Modules int
	Outputs []Output
}

// Store is safe for concurrent use.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	status     TEXT NOT NULL,
	modules    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS outputs (
	build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
	path     TEXT NOT NULL,
	raw      INTEGER NOT NULL,
	final    INTEGER NOT NULL,
	gzip     INTEGER NOT NULL,
	brotli   INTEGER NOT NULL,
	PRIMARY KEY (build_id, path)
);
CREATE INDEX IF NOT EXISTS outputs_path ON outputs(path);
`

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// a single writer avoids SQLITE_BUSY between our own goroutines
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record stores b and its outputs in one transaction.
func (s *Store) Record(ctx context.Context, b Build) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO builds (id, started_at, status, modules) VALUES (?, ?, ?, ?)`,
		b.ID, b.At.UnixNano(), b.Status, b.Modules); err != nil {
		return fmt.Errorf("history: record build %s: %w", b.ID, err)
	}
	for _, o := range b.Outputs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO outputs (build_id, path, raw, final, gzip, brotli) VALUES (?, ?, ?, ?, ?, ?)`,
			b.ID, o.Path, o.Raw, o.Final, o.Gzip, o.Brotli); err != nil {
			return fmt.Errorf("history: record output %s: %w", o.Path, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}

// Previous returns the most recent recorded sizes of path from a build
// other than exclude.
func (s *Store) Previous(ctx context.Context, path, exclude string) (Output, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT o.path, o.raw, o.final, o.gzip, o.brotli
		FROM outputs o JOIN builds b ON b.id = o.build_id
		WHERE o.path = ? AND b.id <> ?
		ORDER BY b.started_at DESC, b.rowid DESC
		LIMIT 1`, path, exclude)
	var o Output
	switch err := row.Scan(&o.Path, &o.Raw, &o.Final, &o.Gzip, &o.Brotli); {
	case errors.Is(err, sql.ErrNoRows):
		return Output{}, false, nil
	case err != nil:
		return Output{}, false, fmt.Errorf("history: previous %s: %w", path, err)
	}
	return o, true, nil
}

// Recent lists the newest builds first, each with its outputs.
func (s *Store) Recent(ctx context.Context, limit int) ([]Build, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, status, modules FROM builds
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	var builds []Build
	for rows.Next() {
		var (
			b  Build
			at int64
		)
		if err := rows.Scan(&b.ID, &at, &b.Status, &b.Modules); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("history: %w", err)
		}
		b.At = time.Unix(0, at)
		builds = append(builds, b)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	for i := range builds {
		outs, err := s.outputs(ctx, builds[i].ID)
		if err != nil {
			return nil, err
		}
		builds[i].Outputs = outs
	}
	return builds, nil
}

func (s *Store) outputs(ctx context.Context, buildID string) ([]Output, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, raw, final, gzip, brotli FROM outputs
		WHERE build_id = ? ORDER BY path`, buildID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Output
	for rows.Next() {
		var o Output
		if err := rows.Scan(&o.Path, &o.Raw, &o.Final, &o.Gzip, &o.Brotli); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep builds and deletes the rest.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM builds WHERE id NOT IN (
			SELECT id FROM builds ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return res.RowsAffected()
}
