package postgres

import (
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories translate.
const (
	codeUniqueViolation      = "23505"
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
)

// Unique constraints with a domain meaning.
const (
	constraintReference      = "uq_transactions_reference"
	constraintIdempotencyKey = "uq_transactions_idempotency_key"
	constraintLedgerEntry    = "uq_ledger_entries_ref_wallet_type"
)

// translate maps PostgreSQL errors onto domain sentinels and adds op context.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch pgErr.Code {
	case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrLockTimeout, err)
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintReference:
			return fmt.Errorf("%s: %w", op, domain.ErrReferenceCollision)
		case constraintIdempotencyKey:
			return fmt.Errorf("%s: %w", op, domain.ErrDuplicateIdempotency)
		case constraintLedgerEntry:
			return fmt.Errorf("%s: %w", op, domain.ErrDuplicateEntry)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
