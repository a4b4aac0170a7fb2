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

// IntegrityServiceImpl implements ports.IntegrityService. It compares a
// wallet's balance with its checksum and with the sum of its ledger entries.
type IntegrityServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	checksum   ports.ChecksumVerifier
	risk       ports.RiskRecorder
	audit      ports.AuditLogger
	transactor ports.DBTransactor
	metrics    ports.MetricsRecorder
	log        zerolog.Logger
	now        func() time.Time
}

// NewIntegrityService creates a new IntegrityServiceImpl.
func NewIntegrityService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	checksum ports.ChecksumVerifier,
	risk ports.RiskRecorder,
	audit ports.AuditLogger,
	transactor ports.DBTransactor,
	metrics ports.MetricsRecorder,
	log zerolog.Logger,
) *IntegrityServiceImpl {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &IntegrityServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		checksum:   checksum,
		risk:       risk,
		audit:      audit,
		transactor: transactor,
		metrics:    metrics,
		log:        logger.Component(log, "integrity"),
		now:        time.Now,
	}
}

// VerifyWallet reports whether the wallet's checksum and ledger agree with its balance.
func (s *IntegrityServiceImpl) VerifyWallet(ctx context.Context, walletID uuid.UUID) (*ports.IntegrityReport, error) {
	w, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, translateError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	report, err := s.inspect(ctx, w)
	if err != nil {
		return nil, err
	}

	if !report.Healthy() {
		s.metrics.RecordChecksumFailure()
		s.log.Error().
			Str("wallet_id", w.ID.String()).
			Bool("checksum_valid", report.ChecksumValid).
			Bool("reconciled", report.Reconciled).
			Int64("balance", report.Balance).
			Int64("ledger_net", report.LedgerNet).
			Msg("wallet integrity check failed")
		if s.risk != nil {
			userID := w.UserID
			s.risk.Record(ctx, &userID, "", domain.ActivityChecksumMismatch, 100, map[string]any{
				"wallet_id":      w.ID.String(),
				"checksum_valid": report.ChecksumValid,
				"reconciled":     report.Reconciled,
				"balance":        report.Balance,
				"ledger_net":     report.LedgerNet,
			})
		}
	}
	return report, nil
}

// Reseal recomputes the checksum of a wallet whose ledger still reconciles
// with its balance. A wallet whose entries disagree is left for manual repair.
func (s *IntegrityServiceImpl) Reseal(ctx context.Context, actor ports.Actor, walletID uuid.UUID, reason string) (*ports.IntegrityReport, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, translateError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	w, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return nil, translateError(fmt.Errorf("lock wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	report, err := s.inspect(ctx, w)
	if err != nil {
		return nil, err
	}
	if !report.Reconciled {
		return nil, apperror.ErrChecksumMismatch().
			WithDetails("wallet_id", w.ID.String()).
			WithDetails("balance", report.Balance).
			WithDetails("ledger_net", report.LedgerNet)
	}

	wasValid := report.ChecksumValid
	if err := s.walletRepo.UpdateChecksum(ctx, dbTx, w.ID, s.checksum.Checksum(w.ID, w.Balance)); err != nil {
		return nil, translateError(fmt.Errorf("update checksum: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, translateError(fmt.Errorf("commit tx: %w", err))
	}
	report.ChecksumValid = true

	s.log.Warn().
		Str("wallet_id", w.ID.String()).
		Bool("was_valid", wasValid).
		Str("reason", reason).
		Msg("wallet checksum resealed")
	s.audit.LogAction(ctx, actor, domain.AuditActionChecksumReseal,
		map[string]any{"wallet_id": w.ID.String(), "checksum_valid": wasValid},
		map[string]any{"wallet_id": w.ID.String(), "checksum_valid": true, "balance": w.Balance},
		reason)

	return report, nil
}

func (s *IntegrityServiceImpl) inspect(ctx context.Context, w *domain.Wallet) (*ports.IntegrityReport, error) {
	sum, err := s.ledgerRepo.Summarize(ctx, w.ID)
	if err != nil {
		return nil, translateError(fmt.Errorf("summarize ledger: %w", err))
	}

	reconciled := sum.Net() == w.Balance
	if sum.LastBalanceAfter != nil {
		reconciled = reconciled && *sum.LastBalanceAfter == w.Balance
	} else {
		reconciled = reconciled && w.Balance == 0
	}

	return &ports.IntegrityReport{
		WalletID:         w.ID,
		Balance:          w.Balance,
		ChecksumValid:    s.checksum.Verify(w),
		LedgerNet:        sum.Net(),
		LastBalanceAfter: sum.LastBalanceAfter,
		EntryCount:       sum.EntryCount,
		Reconciled:       reconciled,
		CheckedAt:        s.now().UTC(),
	}, nil
}
