package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxFunc is the function executed within a transaction.
type TxFunc func(q DBTX) error

// TxRunner runs a function inside a database transaction. Services depend on
// this interface instead of the pool so tests can substitute a fake that
// invokes the function directly.
type TxRunner interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// TxManager is the pgx-backed TxRunner. Every transaction runs at
// Read-Committed under a bounded deadline; row-level FOR UPDATE locks inside
// the transaction provide the required serialization.
type TxManager struct {
	pool     *pgxpool.Pool
	deadline time.Duration
}

func NewTxManager(pool *pgxpool.Pool, deadline time.Duration) *TxManager {
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	return &TxManager{pool: pool, deadline: deadline}
}

// WithinTx begins a transaction, runs fn, and commits. Rollback happens on
// error or panic. The deferred rollback after a commit is a no-op.
func (m *TxManager) WithinTx(ctx context.Context, fn TxFunc) error {
	txCtx, cancel := context.WithTimeout(ctx, m.deadline)
	defer cancel()

	tx, err := m.pool.BeginTx(txCtx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(txCtx)
			panic(p)
		}
		_ = tx.Rollback(txCtx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// WithTransactionResult wraps a function returning a value in a transaction.
func WithTransactionResult[T any](ctx context.Context, runner TxRunner, fn func(q DBTX) (T, error)) (T, error) {
	var result T

	err := runner.WithinTx(ctx, func(q DBTX) error {
		var fnErr error
		result, fnErr = fn(q)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}
