// Package database abstracts the SQL backends behind the score store.
// Driver packages register themselves on import.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
)

// Driver names a storage backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
	// DriverMemory keeps all data in process memory. It has no SQL connection.
	DriverMemory Driver = "memory"
)

func (d Driver) String() string {
	return string(d)
}

// IsValid reports whether d is a known backend.
func (d Driver) IsValid() bool {
	switch d {
	case DriverPostgres, DriverSQLite, DriverMemory:
		return true
	}
	return false
}

// DetectDriver infers the backend from a connection string. An empty string
// selects SQLite so a fresh install runs without configuration.
func DetectDriver(url string) Driver {
	switch {
	case url == "":
		return DriverSQLite
	case url == "memory" || url == "memory://":
		return DriverMemory
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "file:"):
		return DriverSQLite
	}
	switch filepath.Ext(url) {
	case ".db", ".sqlite", ".sqlite3":
		return DriverSQLite
	}
	return DriverPostgres
}

var (
	// ErrNoRows is returned when a query expected to return a row returns none.
	ErrNoRows = errors.New("no rows in result set")

	// ErrNoConnection is returned for drivers that do not use SQL.
	ErrNoConnection = errors.New("driver has no SQL connection")
)

// IsNoRows reports whether err means the query matched nothing, for either
// driver.
func IsNoRows(err error) bool {
	return err != nil && (errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, ErrNoRows))
}

// Config selects and configures a backend.
type Config struct {
	// Driver is detected from URL when empty or "auto".
	Driver Driver

	// URL is the PostgreSQL connection string.
	URL string

	// SQLitePath defaults to ~/.gritline/gritline.db.
	SQLitePath string

	// MaxConns caps the PostgreSQL pool. Zero keeps the pgx default.
	MaxConns int
}

// Opener opens a connection for one driver.
type Opener func(ctx context.Context, cfg Config) (Connection, error)

var (
	openersMu sync.RWMutex
	openers   = map[Driver]Opener{}
)

// Register makes a driver available to NewConnection.
func Register(driver Driver, open Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[driver] = open
}

// NewConnection opens a connection for cfg. The memory driver returns
// ErrNoConnection.
func NewConnection(ctx context.Context, cfg Config) (Connection, error) {
	driver := cfg.Driver
	if driver == "" || driver == "auto" {
		driver = DetectDriver(cfg.URL)
	}
	if driver == DriverMemory {
		return nil, ErrNoConnection
	}
	if !driver.IsValid() {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	openersMu.RLock()
	open, ok := openers[driver]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s driver not registered", driver)
	}
	return open(ctx, cfg)
}

// DefaultSQLitePath returns ~/.gritline/gritline.db, or a path relative to
// the working directory when there is no home directory.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".gritline", "gritline.db")
}

// EnsureDirectory creates the parent directory of path.
func EnsureDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
