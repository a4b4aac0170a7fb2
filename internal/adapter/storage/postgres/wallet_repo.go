package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, user_id, name, kind, currency, balance, balance_checksum, pin_hash,
		failed_pin_attempts, max_pin_attempts, lockout_duration_minutes, pin_locked_until, last_failed_attempt_at,
		is_active, is_locked, locked_at, locked_by, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.UserID, w.Name, w.Kind, w.Currency, w.Balance, w.BalanceChecksum, w.PinHash,
		w.FailedPinAttempts, w.MaxPinAttempts, w.LockoutDurationMinutes, w.PinLockedUntil, w.LastFailedAttemptAt,
		w.IsActive, w.IsLocked, w.LockedAt, w.LockedBy, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return translate("insert wallet", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate("get wallet by id", err)
	}
	return w, nil
}

// ListByUser returns every wallet owned by a user, primary first.
func (r *WalletRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1
		ORDER BY kind = 'primary' DESC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, translate("list wallets", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, translate("scan wallet", err)
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("iterate wallets", err)
	}
	return wallets, nil
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate("get wallet for update by id", err)
	}
	return w, nil
}

// UpdateBalance writes a new balance together with its checksum within a transaction.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64, checksum string) error {
	query := `UPDATE wallets SET balance = $1, balance_checksum = $2, updated_at = NOW() WHERE id = $3`

	return execOne(ctx, tx, "update wallet balance", walletID, query, balance, checksum, walletID)
}

// UpdateChecksum rewrites only the checksum. Used by manual reconciliation.
func (r *WalletRepo) UpdateChecksum(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, checksum string) error {
	query := `UPDATE wallets SET balance_checksum = $1, updated_at = NOW() WHERE id = $2`

	return execOne(ctx, tx, "update wallet checksum", walletID, query, checksum, walletID)
}

// UpdatePinState persists the PIN hash and lockout counters.
func (r *WalletRepo) UpdatePinState(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `UPDATE wallets SET pin_hash = $1, failed_pin_attempts = $2, pin_locked_until = $3,
		last_failed_attempt_at = $4, updated_at = NOW() WHERE id = $5`

	return execOne(ctx, tx, "update wallet pin state", w.ID, query,
		w.PinHash, w.FailedPinAttempts, w.PinLockedUntil, w.LastFailedAttemptAt, w.ID)
}

// UpdateStatus persists the active and administrative lock flags.
func (r *WalletRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `UPDATE wallets SET is_active = $1, is_locked = $2, locked_at = $3, locked_by = $4, updated_at = NOW()
		WHERE id = $5`

	return execOne(ctx, tx, "update wallet status", w.ID, query,
		w.IsActive, w.IsLocked, w.LockedAt, w.LockedBy, w.ID)
}

func execOne(ctx context.Context, tx pgx.Tx, op string, walletID uuid.UUID, query string, args ...any) error {
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return translate(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

// scanWallet returns (nil, nil) when the row does not exist.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.Name, &w.Kind, &w.Currency, &w.Balance, &w.BalanceChecksum, &w.PinHash,
		&w.FailedPinAttempts, &w.MaxPinAttempts, &w.LockoutDurationMinutes, &w.PinLockedUntil, &w.LastFailedAttemptAt,
		&w.IsActive, &w.IsLocked, &w.LockedAt, &w.LockedBy, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}
