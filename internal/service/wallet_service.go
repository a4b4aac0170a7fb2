package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// History page bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// lockedBySystem is recorded when a lock has no identified actor.
const lockedBySystem = "system"

// WalletPolicy holds the per-wallet settings stamped on new wallets.
type WalletPolicy struct {
	MaxPinAttempts  int
	LockoutMinutes  int
	DefaultCurrency string
}

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	checksum   ports.ChecksumVerifier
	audit      ports.AuditLogger
	transactor ports.DBTransactor
	policy     WalletPolicy
	log        zerolog.Logger
	now        func() time.Time
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	checksum ports.ChecksumVerifier,
	audit ports.AuditLogger,
	transactor ports.DBTransactor,
	policy WalletPolicy,
	log zerolog.Logger,
) *WalletServiceImpl {
	if policy.MaxPinAttempts <= 0 {
		policy.MaxPinAttempts = domain.DefaultMaxPinAttempts
	}
	if policy.LockoutMinutes <= 0 {
		policy.LockoutMinutes = domain.DefaultLockoutMinutes
	}
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		checksum:   checksum,
		audit:      audit,
		transactor: transactor,
		policy:     policy,
		log:        logger.Component(log, "wallet"),
		now:        time.Now,
	}
}

// CreateWallet opens a zero-balance wallet with a sealed checksum.
// A user may hold at most one primary wallet.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, actor ports.Actor, req ports.CreateWalletRequest) (*domain.Wallet, error) {
	if req.UserID == uuid.Nil {
		return nil, apperror.Validation("user_id is required")
	}
	kind := req.Kind
	if kind == "" {
		kind = domain.WalletKindPrimary
	}
	if kind != domain.WalletKindPrimary && kind != domain.WalletKindSavings {
		return nil, apperror.Validation("kind must be primary or savings")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.policy.DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, apperror.Validation("currency must be a 3-letter code")
	}

	if kind == domain.WalletKindPrimary {
		existing, err := s.walletRepo.ListByUser(ctx, req.UserID)
		if err != nil {
			return nil, translateError(fmt.Errorf("list wallets: %w", err))
		}
		for _, w := range existing {
			if w.Kind == domain.WalletKindPrimary {
				return nil, apperror.ErrPrimaryWalletExists().WithDetails("wallet_id", w.ID.String())
			}
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = string(kind)
	}

	now := s.now().UTC()
	w := &domain.Wallet{
		ID:                     uuid.New(),
		UserID:                 req.UserID,
		Name:                   name,
		Kind:                   kind,
		Currency:               currency,
		MaxPinAttempts:         s.policy.MaxPinAttempts,
		LockoutDurationMinutes: s.policy.LockoutMinutes,
		IsActive:               true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	w.BalanceChecksum = s.checksum.Checksum(w.ID, 0)

	if err := s.walletRepo.Create(ctx, w); err != nil {
		return nil, translateError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", w.ID.String()).
		Str("user_id", w.UserID.String()).
		Str("kind", string(w.Kind)).
		Str("currency", w.Currency).
		Msg("wallet created")
	s.audit.LogAction(ctx, actor, domain.AuditActionWalletCreate, nil,
		map[string]any{
			"wallet_id": w.ID.String(),
			"user_id":   w.UserID.String(),
			"kind":      string(w.Kind),
			"currency":  w.Currency,
		}, "wallet created")

	return w, nil
}

// GetWallet returns a wallet by ID.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return w, nil
}

// ListWallets returns a user's wallets, primary first.
func (s *WalletServiceImpl) ListWallets(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	wallets, err := s.walletRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, translateError(fmt.Errorf("list wallets: %w", err))
	}
	if wallets == nil {
		wallets = []domain.Wallet{}
	}
	return wallets, nil
}

// History returns one page of a wallet's ledger entries, newest first.
func (s *WalletServiceImpl) History(ctx context.Context, id uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	if _, err := s.GetWallet(ctx, id); err != nil {
		return nil, 0, err
	}

	entries, total, err := s.ledgerRepo.ListByWallet(ctx, id, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, translateError(fmt.Errorf("list entries: %w", err))
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return entries, total, nil
}

// LockWallet blocks all balance movements on the wallet.
func (s *WalletServiceImpl) LockWallet(ctx context.Context, actor ports.Actor, id uuid.UUID, reason string) (*domain.Wallet, error) {
	return s.changeStatus(ctx, actor, id, domain.AuditActionWalletLock, reason, func(w *domain.Wallet, now time.Time) {
		by := lockedBySystem
		if actor.UserID != nil {
			by = actor.UserID.String()
		}
		w.IsLocked = true
		w.LockedAt = &now
		w.LockedBy = &by
	})
}

// UnlockWallet clears an administrative lock.
func (s *WalletServiceImpl) UnlockWallet(ctx context.Context, actor ports.Actor, id uuid.UUID) (*domain.Wallet, error) {
	return s.changeStatus(ctx, actor, id, domain.AuditActionWalletUnlock, "wallet unlocked", func(w *domain.Wallet, _ time.Time) {
		w.IsLocked = false
		w.LockedAt = nil
		w.LockedBy = nil
	})
}

// DeactivateWallet soft-deletes the wallet. Its row and entries are kept.
func (s *WalletServiceImpl) DeactivateWallet(ctx context.Context, actor ports.Actor, id uuid.UUID) (*domain.Wallet, error) {
	return s.changeStatus(ctx, actor, id, domain.AuditActionWalletDeactivate, "wallet deactivated", func(w *domain.Wallet, _ time.Time) {
		w.IsActive = false
	})
}

func (s *WalletServiceImpl) changeStatus(
	ctx context.Context,
	actor ports.Actor,
	id uuid.UUID,
	action domain.AuditAction,
	description string,
	mutate func(w *domain.Wallet, now time.Time),
) (*domain.Wallet, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, translateError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	w, err := s.lockedWallet(ctx, dbTx, id)
	if err != nil {
		return nil, err
	}
	before := statusValues(w)

	now := s.now().UTC()
	mutate(w, now)
	w.UpdatedAt = now

	if err := s.walletRepo.UpdateStatus(ctx, dbTx, w); err != nil {
		return nil, translateError(fmt.Errorf("update wallet status: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, translateError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("wallet_id", w.ID.String()).
		Str("action", string(action)).
		Msg("wallet status changed")
	s.audit.LogAction(ctx, actor, action, before, statusValues(w), description)
	return w, nil
}

func (s *WalletServiceImpl) lockedWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, translateError(fmt.Errorf("lock wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return w, nil
}

func statusValues(w *domain.Wallet) map[string]any {
	return map[string]any{
		"wallet_id": w.ID.String(),
		"is_active": w.IsActive,
		"is_locked": w.IsLocked,
	}
}
