package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor. Every transaction it opens carries
// a bounded lock wait so row-lock contention surfaces as a lock timeout.
type Transactor struct {
	pool        Pool
	isoLevel    pgx.TxIsoLevel
	lockTimeout time.Duration
}

// NewTransactor creates a new Transactor wrapping the connection pool.
// isolation is one of read_committed, repeatable_read, serializable.
func NewTransactor(pool Pool, isolation string, lockTimeout time.Duration) *Transactor {
	return &Transactor{
		pool:        pool,
		isoLevel:    isoLevel(isolation),
		lockTimeout: lockTimeout,
	}
}

// Begin starts a new database transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: t.isoLevel})
	if err != nil {
		return nil, translate("begin transaction", err)
	}

	if t.lockTimeout > 0 {
		// SET LOCAL does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", t.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}
	return tx, nil
}

func isoLevel(name string) pgx.TxIsoLevel {
	switch name {
	case "serializable":
		return pgx.Serializable
	case "repeatable_read":
		return pgx.RepeatableRead
	default:
		return pgx.ReadCommitted
	}
}
