package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, reference, idempotency_key, idempotency_expires_at, sender_wallet_id, receiver_wallet_id,
		type, amount, currency, status, description, failure_reason,
		initiated_at, processed_at, completed_at, failed_at, created_at, updated_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction. Unique
// violations on the reference or the idempotency key come back as
// domain.ErrReferenceCollision and domain.ErrDuplicateIdempotency.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.Reference, t.IdempotencyKey, t.IdempotencyExpiresAt, t.SenderWalletID, t.ReceiverWalletID,
		t.Type, t.Amount, t.Currency, t.Status, t.Description, t.FailureReason,
		t.InitiatedAt, t.ProcessedAt, t.CompletedAt, t.FailedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return translate("insert transaction", err)
	}
	return nil
}

// GetByReference fetches a transaction by its public reference.
func (r *TransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, reference))
}

// GetByIdempotencyKey fetches the transaction currently holding a key (non-locking read).
func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, key))
}

// GetByIdempotencyKeyForUpdate fetches and locks the transaction holding a key.
// This MUST be called within a transaction.
func (r *TransactionRepo) GetByIdempotencyKeyForUpdate(ctx context.Context, tx pgx.Tx, key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1 FOR UPDATE`

	return r.scanTransaction(tx.QueryRow(ctx, query, key))
}

// ReleaseIdempotencyKey detaches an expired key from its transaction so it can be reused.
func (r *TransactionRepo) ReleaseIdempotencyKey(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `UPDATE transactions SET idempotency_key = NULL, updated_at = NOW() WHERE id = $1`

	if _, err := tx.Exec(ctx, query, id); err != nil {
		return translate("release idempotency key", err)
	}
	return nil
}

// UpdateStatus persists a terminal status. Only pending rows can move, so a
// row that already reached a terminal state yields domain.ErrInvalidTransition.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `UPDATE transactions SET status = $1, failure_reason = $2, processed_at = $3, completed_at = $4,
		failed_at = $5, updated_at = $6 WHERE id = $7 AND status = 'pending'`

	tag, err := tx.Exec(ctx, query,
		t.Status, t.FailureReason, t.ProcessedAt, t.CompletedAt, t.FailedAt, t.UpdatedAt, t.ID)
	if err != nil {
		return translate("update transaction status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, domain.ErrInvalidTransition)
	}
	return nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.Reference, &t.IdempotencyKey, &t.IdempotencyExpiresAt, &t.SenderWalletID, &t.ReceiverWalletID,
		&t.Type, &t.Amount, &t.Currency, &t.Status, &t.Description, &t.FailureReason,
		&t.InitiatedAt, &t.ProcessedAt, &t.CompletedAt, &t.FailedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("scan transaction", err)
	}
	return t, nil
}
