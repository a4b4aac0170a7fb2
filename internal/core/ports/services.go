package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Actor identifies who triggered an audited action. It is passed explicitly
// by callers instead of being read from request state.
type Actor struct {
	UserID    *uuid.UUID
	IPAddress string
	UserAgent string
}

// ChecksumVerifier binds a balance to its wallet with a keyed digest.
type ChecksumVerifier interface {
	Checksum(walletID uuid.UUID, balance int64) string
	Verify(wallet *domain.Wallet) bool
}

// HashService handles PIN hashing (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// LedgerEngine applies single-wallet credits and debits.
type LedgerEngine interface {
	Credit(ctx context.Context, walletID uuid.UUID, amount int64, reference, description string) (*domain.BalanceChange, error)
	Debit(ctx context.Context, walletID uuid.UUID, amount int64, reference, description string) (*domain.BalanceChange, error)
	Apply(ctx context.Context, tx pgx.Tx, op domain.LedgerOperation) (*domain.BalanceChange, error)
	LockWallets(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error)
}

// PinGuard verifies wallet PINs and enforces progressive lockout.
type PinGuard interface {
	SetPIN(ctx context.Context, actor Actor, walletID uuid.UUID, pin string) error
	Verify(ctx context.Context, walletID uuid.UUID, pin string) error
}

// LimitEnforcer checks and books per-user daily spend ceilings.
type LimitEnforcer interface {
	CheckAndReserve(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, day time.Time) (*domain.TransactionLimit, error)
	Commit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, day time.Time) error
	Status(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.TransactionLimit, error)
}

// RiskRecorder reports anomalous activity. Recording never fails the caller.
type RiskRecorder interface {
	Record(ctx context.Context, userID *uuid.UUID, reference string, activityType string, riskScore int, details map[string]any)
}

// AuditLogger records CRUD actions with an explicit actor.
type AuditLogger interface {
	LogAction(ctx context.Context, actor Actor, action domain.AuditAction, oldValues, newValues map[string]any, description string)
}

// IntegrityService verifies and reseals wallet checksums.
type IntegrityService interface {
	VerifyWallet(ctx context.Context, walletID uuid.UUID) (*IntegrityReport, error)
	Reseal(ctx context.Context, actor Actor, walletID uuid.UUID, reason string) (*IntegrityReport, error)
}

// IntegrityReport is the result of checking one wallet.
type IntegrityReport struct {
	WalletID         uuid.UUID `json:"wallet_id"`
	Balance          int64     `json:"balance"`
	ChecksumValid    bool      `json:"checksum_valid"`
	LedgerNet        int64     `json:"ledger_net"`
	LastBalanceAfter *int64    `json:"last_balance_after,omitempty"`
	EntryCount       int64     `json:"entry_count"`
	Reconciled       bool      `json:"reconciled"`
	CheckedAt        time.Time `json:"checked_at"`
}

// Healthy reports whether both the checksum and the ledger agree with the balance.
func (r *IntegrityReport) Healthy() bool {
	return r.ChecksumValid && r.Reconciled
}

// TransferService orchestrates two-sided money movements.
type TransferService interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	GetByReference(ctx context.Context, reference string) (*TransferResult, error)
}

// TransferRequest holds validated input for a transfer. A nil wallet side is
// the external/system account.
type TransferRequest struct {
	SenderWalletID   *uuid.UUID
	ReceiverWalletID *uuid.UUID
	Amount           int64
	Currency         string
	Type             domain.TransactionType
	IdempotencyKey   string
	Description      string
	Pin              string
}

// TransferResult is a transaction with the ledger entries it produced.
type TransferResult struct {
	Transaction *domain.Transaction  `json:"transaction"`
	Entries     []domain.LedgerEntry `json:"entries"`
	Replayed    bool                 `json:"replayed"`
}

// WalletService manages wallet lifecycle outside of balance movements.
type WalletService interface {
	CreateWallet(ctx context.Context, actor Actor, req CreateWalletRequest) (*domain.Wallet, error)
	GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	ListWallets(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
	History(ctx context.Context, id uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error)
	LockWallet(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*domain.Wallet, error)
	UnlockWallet(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Wallet, error)
	DeactivateWallet(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Wallet, error)
}

// CreateWalletRequest holds input for opening a wallet.
type CreateWalletRequest struct {
	UserID   uuid.UUID
	Name     string
	Kind     domain.WalletKind
	Currency string
}
