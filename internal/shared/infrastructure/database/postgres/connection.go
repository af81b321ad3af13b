// Package postgres registers the pgx-backed PostgreSQL driver.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database"
)

func init() {
	database.Register(database.DriverPostgres, Open)
}

// querier is the statement surface shared by pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// executor adapts a querier to database.Executor.
type executor struct {
	q querier
}

func (e executor) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	tag, err := e.q.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return commandTag(tag), nil
}

func (e executor) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return e.q.QueryRow(ctx, query, args...)
}

func (e executor) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := e.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgxRows{rows}, nil
}

// Connection is a pooled PostgreSQL connection.
type Connection struct {
	executor
	pool *pgxpool.Pool
}

// Open creates the pool described by cfg.URL.
func Open(ctx context.Context, cfg database.Config) (database.Connection, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required for PostgreSQL")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &Connection{executor: executor{pool}, pool: pool}, nil
}

func (c *Connection) Driver() database.Driver { return database.DriverPostgres }

func (c *Connection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *Connection) Close() error {
	c.pool.Close()
	return nil
}

func (c *Connection) BeginTx(ctx context.Context) (database.Transaction, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &transaction{executor: executor{tx}, tx: tx}, nil
}

type transaction struct {
	executor
	tx pgx.Tx
}

func (t *transaction) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *transaction) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

type commandTag pgconn.CommandTag

func (c commandTag) RowsAffected() (int64, error) {
	return pgconn.CommandTag(c).RowsAffected(), nil
}

// pgxRows gives pgx.Rows an error-returning Close.
type pgxRows struct {
	pgx.Rows
}

func (r pgxRows) Close() error {
	r.Rows.Close()
	return nil
}
