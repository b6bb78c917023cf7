// Package postgres archives trace snapshots into a PostgreSQL table, mirroring
// the sqlite archive schema with JSONB payloads.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/acope3/AnaCoDa/internal/engine"
)

var _ engine.SnapshotSink = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/anacoda?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store appends every snapshot of one run to the trace table.
type Store struct {
	db  *sql.DB
	run string
	mu  sync.Mutex
}

// NewStore opens a Postgres-backed archive using the provided DSN (falls back
// to defaultDSN) and ensures the trace table exists.
func NewStore(dsn, run string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	if run == "" {
		return nil, fmt.Errorf("run identifier required")
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS trace (
		run TEXT NOT NULL,
		sweep BIGINT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (run, sweep)
	)`); err != nil {
		return nil, fmt.Errorf("ensure trace table: %w", err)
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
		`INSERT INTO trace(run,sweep,payload) VALUES($1,$2,$3) ON CONFLICT(run,sweep) DO UPDATE SET payload=EXCLUDED.payload`,
		s.run, snap.Sweep, data); err != nil {
		return fmt.Errorf("upsert sweep %d: %w", snap.Sweep, err)
	}
	return nil
}

// Snapshots reads back every archived snapshot of the run in sweep order.
func (s *Store) Snapshots(ctx context.Context) ([]engine.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM trace WHERE run = $1 ORDER BY sweep`, s.run)
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

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
