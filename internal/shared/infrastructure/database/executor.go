package database

import "context"

// Row is satisfied by pgx.Row and *sql.Row.
type Row interface {
	Scan(dest ...any) error
}

// Rows is satisfied by *sql.Rows. The pgx driver adapts pgx.Rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Result is satisfied by sql.Result. The pgx driver adapts its command tag.
type Result interface {
	RowsAffected() (int64, error)
}

// Executor runs statements on a connection or inside a transaction.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Transaction is an Executor that must be committed or rolled back.
type Transaction interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Connection is an open backend.
type Connection interface {
	Executor
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
	Ping(ctx context.Context) error
	Driver() Driver
}
