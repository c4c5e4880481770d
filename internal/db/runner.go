package db

import (
	"context"
	"database/sql"
)

// TxRunner executes fn inside a write transaction. Implementations commit
// when fn returns nil and roll back otherwise.
type TxRunner interface {
	Do(ctx context.Context, fn TxFn) error
}

// DirectRunner opens one transaction per call on the shared pool. It is used
// with Postgres, where concurrent writers are arbitrated by row locks.
type DirectRunner struct {
	db   *sql.DB
	opts *sql.TxOptions
}

func NewDirectRunner(db *sql.DB) *DirectRunner {
	return &DirectRunner{db: db}
}

func (r *DirectRunner) Do(ctx context.Context, fn TxFn) error {
	tx, err := r.db.BeginTx(ctx, r.opts)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close is a no-op kept for symmetry with Worker.
func (r *DirectRunner) Close() {}

// NewRunner returns the write runner appropriate for the dialect.
func NewRunner(conn *sql.DB, d Dialect) interface {
	TxRunner
	Close()
} {
	if d == Postgres {
		return NewDirectRunner(conn)
	}
	return NewWorker(conn)
}
