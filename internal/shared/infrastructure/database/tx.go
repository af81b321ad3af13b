package database

import (
	"context"
	"errors"
)

type txKey struct{}

type txInfo struct {
	tx    Transaction
	owned bool
}

func txFromContext(ctx context.Context) (txInfo, bool) {
	info, ok := ctx.Value(txKey{}).(txInfo)
	return info, ok && info.tx != nil
}

// ExecutorFromContext returns the transaction carried by ctx, or conn when
// there is none.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if info, ok := txFromContext(ctx); ok {
		return info.tx
	}
	return conn
}

// UnitOfWork carries one transaction per command in the context. A nested
// Begin joins the outer transaction and leaves commit to its owner.
type UnitOfWork struct {
	conn Connection
}

// NewUnitOfWork creates a unit of work over conn.
func NewUnitOfWork(conn Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn}
}

// Begin starts a transaction, or joins the one already in ctx.
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if info, ok := txFromContext(ctx); ok {
		return context.WithValue(ctx, txKey{}, txInfo{tx: info.tx}), nil
	}
	tx, err := u.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return context.WithValue(ctx, txKey{}, txInfo{tx: tx, owned: true}), nil
}

// Commit commits when this unit started the transaction.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	info, ok := txFromContext(ctx)
	if !ok {
		return errNoTransaction
	}
	if !info.owned {
		return nil
	}
	return info.tx.Commit(ctx)
}

// Rollback rolls back when this unit started the transaction.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	info, ok := txFromContext(ctx)
	if !ok {
		return errNoTransaction
	}
	if !info.owned {
		return nil
	}
	return info.tx.Rollback(ctx)
}

var errNoTransaction = errors.New("no transaction in context")
