package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for the balance store.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64, checksum string) error
	UpdateChecksum(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, checksum string) error
	UpdatePinState(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	UpdateStatus(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
}

// LedgerRepository defines persistence for append-only ledger entries.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error)
	ListByReference(ctx context.Context, reference string) ([]domain.LedgerEntry, error)
	Summarize(ctx context.Context, walletID uuid.UUID) (*LedgerSummary, error)
}

// LedgerSummary aggregates a wallet's entries for reconciliation.
type LedgerSummary struct {
	Credits          int64
	Debits           int64
	EntryCount       int64
	LastBalanceAfter *int64
}

// Net returns credits minus debits.
func (s LedgerSummary) Net() int64 {
	return s.Credits - s.Debits
}

// TransactionRepository defines persistence operations for transactions.
// Create returns domain.ErrReferenceCollision or domain.ErrDuplicateIdempotency
// when a uniqueness constraint rejects the row.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	GetByIdempotencyKeyForUpdate(ctx context.Context, tx pgx.Tx, key string) (*domain.Transaction, error)
	ReleaseIdempotencyKey(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	UpdateStatus(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
}

// LimitDefaults seeds a user's limit row the first time it is touched on a given day.
type LimitDefaults struct {
	DailyLimit             int64
	SingleTransactionLimit int64
	MaxDailyTransactions   int
}

// LimitRepository defines persistence for per-user daily limits.
type LimitRepository interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, day time.Time, defaults LimitDefaults) (*domain.TransactionLimit, error)
	Get(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.TransactionLimit, error)
	AddUsage(ctx context.Context, tx pgx.Tx, userID uuid.UUID, day time.Time, amount int64) error
}

// RiskRepository persists suspicious activity records.
type RiskRepository interface {
	Create(ctx context.Context, activity *domain.SuspiciousActivity) error
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
