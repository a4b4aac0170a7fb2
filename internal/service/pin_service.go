package service

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// lockoutRiskScore is reported when a wallet enters PIN lockout.
const lockoutRiskScore = 50

// PinServiceImpl implements ports.PinGuard.
type PinServiceImpl struct {
	walletRepo        ports.WalletRepository
	hasher            ports.HashService
	risk              ports.RiskRecorder
	audit             ports.AuditLogger
	transactor        ports.DBTransactor
	metrics           ports.MetricsRecorder
	maxLockoutMinutes int
	log               zerolog.Logger
	now               func() time.Time
}

// NewPinService creates a PIN guard. maxLockoutMinutes caps the exponential lockout.
func NewPinService(
	walletRepo ports.WalletRepository,
	hasher ports.HashService,
	risk ports.RiskRecorder,
	audit ports.AuditLogger,
	transactor ports.DBTransactor,
	metrics ports.MetricsRecorder,
	maxLockoutMinutes int,
	log zerolog.Logger,
) *PinServiceImpl {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &PinServiceImpl{
		walletRepo:        walletRepo,
		hasher:            hasher,
		risk:              risk,
		audit:             audit,
		transactor:        transactor,
		metrics:           metrics,
		maxLockoutMinutes: maxLockoutMinutes,
		log:               logger.Component(log, "pin"),
		now:               time.Now,
	}
}

// SetPIN stores a new PIN hash and clears any failed attempts or lockout.
func (s *PinServiceImpl) SetPIN(ctx context.Context, actor ports.Actor, walletID uuid.UUID, pin string) error {
	if !domain.ValidPinFormat(pin) {
		return apperror.ErrPinFormat()
	}
	hash, err := s.hasher.Hash(pin)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hash pin: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return translateError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	w, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return translateError(fmt.Errorf("lock wallet: %w", err))
	}
	if w == nil {
		return apperror.ErrNotFound("wallet")
	}

	hadPin := w.HasPin()
	w.PinHash = &hash
	w.FailedPinAttempts = 0
	w.PinLockedUntil = nil
	w.LastFailedAttemptAt = nil

	if err := s.walletRepo.UpdatePinState(ctx, dbTx, w); err != nil {
		return translateError(fmt.Errorf("update pin: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return translateError(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.LogAction(ctx, actor, domain.AuditActionPinSet,
		map[string]any{"wallet_id": walletID.String(), "pin_set": hadPin},
		map[string]any{"wallet_id": walletID.String(), "pin_set": true},
		"wallet pin set")
	return nil
}

// Verify checks pin against the wallet and persists the attempt in its own
// transaction, so a failed attempt counts even when the caller's request fails.
func (s *PinServiceImpl) Verify(ctx context.Context, walletID uuid.UUID, pin string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return translateError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	w, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return translateError(fmt.Errorf("lock wallet: %w", err))
	}
	if w == nil {
		return apperror.ErrNotFound("wallet")
	}
	if !w.HasPin() {
		return apperror.ErrPinNotSet()
	}

	now := s.now().UTC()
	if w.PinLocked(now) {
		// No hashing while locked: the outcome is fixed and state is untouched.
		attempt := w.RegisterPinAttempt(false, now, s.maxLockoutMinutes)
		s.metrics.RecordPinAttempt(attempt.Outcome)
		return apperror.ErrPinLocked(*attempt.LockedUntil, attempt.RemainingLockout(now))
	}

	correct, err := s.hasher.Verify(pin, *w.PinHash)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("verify pin hash: %w", err))
	}

	attempt := w.RegisterPinAttempt(correct, now, s.maxLockoutMinutes)
	if err := s.walletRepo.UpdatePinState(ctx, dbTx, w); err != nil {
		return translateError(fmt.Errorf("update pin state: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return translateError(fmt.Errorf("commit tx: %w", err))
	}
	s.metrics.RecordPinAttempt(attempt.Outcome)

	if attempt.Outcome == domain.PinOutcomeAccepted {
		return nil
	}

	if attempt.LockoutTriggered {
		s.log.Warn().
			Str("wallet_id", walletID.String()).
			Int("failed_attempts", attempt.FailedAttempts).
			Time("locked_until", *attempt.LockedUntil).
			Msg("pin lockout triggered")
		if s.risk != nil {
			userID := w.UserID
			s.risk.Record(ctx, &userID, "", domain.ActivityPinLockout, lockoutRiskScore, map[string]any{
				"wallet_id":       walletID.String(),
				"failed_attempts": attempt.FailedAttempts,
				"locked_until":    attempt.LockedUntil.Format(time.RFC3339),
			})
		}
		return apperror.ErrPinIncorrect(0).
			WithDetails("locked_until", attempt.LockedUntil.Format(time.RFC3339)).
			WithDetails("remaining_minutes", attempt.RemainingLockout(now))
	}
	return apperror.ErrPinIncorrect(attempt.RemainingAttempts)
}
