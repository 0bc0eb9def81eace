package state

import (
	"context"
	"database/sql"
)

type txKey struct{}

// querier is the subset of *sql.Tx / *sql.DB used by StateManager
// operations, letting them run against either a transaction or (for pure
// reads outside a WithTx block) the pool directly.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction. Nested transactions are allowed and
// commit only when the outermost completes: if ctx already carries an open
// transaction, fn joins it and this call is a no-op wrapper rather than
// opening a second one. Any error returned by fn rolls back the outermost
// transaction, discarding every write made inside it.
func (s *StateManager) withTx(ctx context.Context, fn func(ctx context.Context, q querier) error) error {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx, tx)
	}

	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return &StorageUnavailableError{Cause: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &StorageUnavailableError{Cause: err}
	}
	committed = true
	return nil
}

// q returns a querier for read-only operations: the enclosing transaction
// if ctx carries one, otherwise the raw pool.
func (s *StateManager) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.store.DB()
}
