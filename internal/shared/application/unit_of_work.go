package application

import "context"

// UnitOfWork scopes a set of store calls to one transaction carried in the
// returned context.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RunInUnitOfWork runs fn inside uow and commits when fn succeeds. A nil
// uow runs fn directly, which is how the in-memory store operates.
func RunInUnitOfWork(ctx context.Context, uow UnitOfWork, fn func(ctx context.Context) error) error {
	if uow == nil {
		return fn(ctx)
	}

	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(txCtx); err != nil {
		_ = uow.Rollback(txCtx)
		return err
	}
	return uow.Commit(txCtx)
}
