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
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LimitServiceImpl implements ports.LimitEnforcer over one row per user per UTC day.
type LimitServiceImpl struct {
	repo     ports.LimitRepository
	defaults ports.LimitDefaults
	log      zerolog.Logger
}

// NewLimitService creates a limit enforcer seeding new day rows from defaults.
func NewLimitService(repo ports.LimitRepository, defaults ports.LimitDefaults, log zerolog.Logger) *LimitServiceImpl {
	return &LimitServiceImpl{repo: repo, defaults: defaults, log: logger.Component(log, "limits")}
}

// CheckAndReserve locks the user's row for day and rejects amount if it breaks a ceiling.
// The row stays locked until tx ends, so the later Commit cannot race another debit.
func (s *LimitServiceImpl) CheckAndReserve(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, day time.Time) (*domain.TransactionLimit, error) {
	l, err := s.repo.GetForUpdate(ctx, tx, userID, domain.LimitDay(day), s.defaults)
	if err != nil {
		return nil, translateError(fmt.Errorf("lock limits: %w", err))
	}
	if err := limitError(l, l.Check(amount)); err != nil {
		s.log.Info().
			Str("user_id", userID.String()).
			Int64("amount", amount).
			Str("error_code", errorCode(err)).
			Msg("limit check rejected debit")
		return l, err
	}
	return l, nil
}

// Commit books amount against the day's usage in the caller's transaction.
func (s *LimitServiceImpl) Commit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64, day time.Time) error {
	if err := s.repo.AddUsage(ctx, tx, userID, domain.LimitDay(day), amount); err != nil {
		return translateError(fmt.Errorf("commit limit usage: %w", err))
	}
	return nil
}

// Status returns the user's usage for day. A day without activity reports
// the defaults with nothing spent; no row is created.
func (s *LimitServiceImpl) Status(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.TransactionLimit, error) {
	d := domain.LimitDay(day)
	l, err := s.repo.Get(ctx, userID, d)
	if err != nil {
		return nil, translateError(fmt.Errorf("get limits: %w", err))
	}
	if l == nil {
		l = &domain.TransactionLimit{
			UserID:                 userID,
			LimitDate:              d,
			DailyLimit:             s.defaults.DailyLimit,
			SingleTransactionLimit: s.defaults.SingleTransactionLimit,
			MaxDailyTransactions:   s.defaults.MaxDailyTransactions,
		}
	}
	return l, nil
}

func limitError(l *domain.TransactionLimit, v domain.LimitViolation) error {
	switch v {
	case domain.LimitExceedsSingle:
		return apperror.ErrExceedsSingleLimit(l.SingleTransactionLimit)
	case domain.LimitExceedsDaily:
		return apperror.ErrExceedsDailyLimit(l.RemainingDaily())
	case domain.LimitTooManyDailyTransactions:
		return apperror.ErrTooManyDailyTransactions(l.MaxDailyTransactions)
	}
	return nil
}
