// Package persistence selects a trace archive backend from the environment.
package persistence

import (
	"context"
	"fmt"
	"os"

	"github.com/acope3/AnaCoDa/internal/engine"
	"github.com/acope3/AnaCoDa/internal/persistence/postgres"
	"github.com/acope3/AnaCoDa/internal/persistence/sqlite"
)

// Driver identifies a concrete trace archive implementation.
type Driver string

const (
	DriverNone     Driver = "none"     // no archive (trace kept in memory only)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Sink is a closable snapshot archive.
type Sink interface {
	engine.SnapshotSink
	Snapshots(ctx context.Context) ([]engine.Snapshot, error)
	Close() error
}

// Open selects an archive backend using environment variables. Defaults to
// none when unset, so library consumers opt in to persistence explicitly.
//
//	ANACODA_TRACE_DRIVER: none|sqlite|postgres (default none)
//	ANACODA_SQLITE_PATH: path to sqlite file (default ./anacoda.db)
//	ANACODA_POSTGRES_DSN: postgres DSN when driver=postgres
//
// A nil Sink with a nil error means persistence is disabled.
func Open(run string) (Sink, error) {
	driver := os.Getenv("ANACODA_TRACE_DRIVER")
	if driver == "" {
		driver = string(DriverNone)
	}
	switch Driver(driver) {
	case DriverNone:
		return nil, nil
	case DriverSQLite:
		path := os.Getenv("ANACODA_SQLITE_PATH")
		return sqlite.NewStore(path, run)
	case DriverPostgres:
		dsn := os.Getenv("ANACODA_POSTGRES_DSN")
		return postgres.NewStore(dsn, run)
	default:
		return nil, fmt.Errorf("unknown trace driver %s", driver)
	}
}
