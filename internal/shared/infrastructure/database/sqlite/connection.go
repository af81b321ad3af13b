// Package sqlite registers the pure Go SQLite driver used in local mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database"
)

func init() {
	database.Register(database.DriverSQLite, Open)
}

// pragmas enable WAL and foreign keys, and wait on a locked database
// instead of failing.
var pragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

// Connection is a single-writer SQLite database.
type Connection struct {
	db *sql.DB
}

// Open opens the database at cfg.SQLitePath, creating its directory.
func Open(ctx context.Context, cfg database.Config) (database.Connection, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = database.DefaultSQLitePath()
	}
	if err := database.EnsureDirectory(path); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return &Connection{db: db}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(path)
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

func (c *Connection) Driver() database.Driver        { return database.DriverSQLite }
func (c *Connection) Close() error                   { return c.db.Close() }
func (c *Connection) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *Connection) BeginTx(ctx context.Context) (database.Transaction, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &transaction{tx: tx}, nil
}

func (c *Connection) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

func (c *Connection) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *Connection) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type transaction struct {
	tx *sql.Tx
}

func (t *transaction) Commit(context.Context) error   { return t.tx.Commit() }
func (t *transaction) Rollback(context.Context) error { return t.tx.Rollback() }

func (t *transaction) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *transaction) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *transaction) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
