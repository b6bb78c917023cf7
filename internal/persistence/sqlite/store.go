// Package sqlite archives trace snapshots into an embedded SQLite file, one
// JSON payload per recorded sweep.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/acope3/AnaCoDa/internal/engine"
)

var _ engine.SnapshotSink = (*Store)(nil)

// Store appends every snapshot of one run to the trace table. Replaying a
// sweep overwrites its previous payload, so a restarted run converges to a
// single consistent archive.
type Store struct {
	db  *sql.DB
	run string
	mu  sync.Mutex
}

// NewStore opens (creating if needed) the archive at path and scopes all
// writes to the given run identifier.
func NewStore(path, run string) (*Store, error) {
	if path == "" {
		path = "anacoda.db"
	}
	if run == "" {
		return nil, fmt.Errorf("run identifier required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS trace (
		run TEXT NOT NULL,
		sweep INTEGER NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (run, sweep)
	)`); err != nil {
		return nil, fmt.Errorf("create trace table: %w", err)
	}
	return &Store{db: db, run: run}, nil
}

// WriteSnapshot encodes the snapshot as JSON and upserts it under its sweep.
func (s *Store) WriteSnapshot(ctx context.Context, snap engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO trace(run,sweep,payload) VALUES(?,?,?) ON CONFLICT(run,sweep) DO UPDATE SET payload=excluded.payload`,
		s.run, snap.Sweep, data); err != nil {
		return fmt.Errorf("upsert sweep %d: %w", snap.Sweep, err)
	}
	return nil
}

// Snapshots reads back every archived snapshot of the run in sweep order.
func (s *Store) Snapshots(ctx context.Context) ([]engine.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM trace WHERE run = ? ORDER BY sweep`, s.run)
	if err != nil {
		return nil, fmt.Errorf("select trace: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []engine.Snapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var snap engine.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return out, nil
}

// Run returns the run identifier the store writes under.
func (s *Store) Run() string { return s.run }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
