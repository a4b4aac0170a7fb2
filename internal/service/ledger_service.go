package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
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

// Ledger operation outcomes reported to metrics.
const (
	outcomeApplied = "applied"
)

// LedgerServiceImpl implements ports.LedgerEngine. Every balance change runs
// under the wallet row lock: lock, verify checksum, validate, write balance
// and checksum, append one entry.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	checksum   ports.ChecksumVerifier
	risk       ports.RiskRecorder
	transactor ports.DBTransactor
	metrics    ports.MetricsRecorder
	log        zerolog.Logger
	now        func() time.Time
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	checksum ports.ChecksumVerifier,
	risk ports.RiskRecorder,
	transactor ports.DBTransactor,
	metrics ports.MetricsRecorder,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		checksum:   checksum,
		risk:       risk,
		transactor: transactor,
		metrics:    metrics,
		log:        logger.Component(log, "ledger"),
		now:        time.Now,
	}
}

// Credit adds amount to a wallet in its own unit of work.
func (s *LedgerServiceImpl) Credit(ctx context.Context, walletID uuid.UUID, amount int64, reference, description string) (*domain.BalanceChange, error) {
	return s.standalone(ctx, domain.LedgerOperation{
		WalletID:       walletID,
		Direction:      domain.EntryTypeCredit,
		Amount:         amount,
		TransactionRef: reference,
		Description:    description,
	})
}

// Debit removes amount from a wallet in its own unit of work.
func (s *LedgerServiceImpl) Debit(ctx context.Context, walletID uuid.UUID, amount int64, reference, description string) (*domain.BalanceChange, error) {
	return s.standalone(ctx, domain.LedgerOperation{
		WalletID:       walletID,
		Direction:      domain.EntryTypeDebit,
		Amount:         amount,
		TransactionRef: reference,
		Description:    description,
	})
}

func (s *LedgerServiceImpl) standalone(ctx context.Context, op domain.LedgerOperation) (*domain.BalanceChange, error) {
	if op.TransactionRef == "" {
		op.TransactionRef = NewReference()
	} else if err := s.checkReference(ctx, op.TransactionRef); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, translateError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	change, err := s.Apply(ctx, dbTx, op)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, translateError(fmt.Errorf("commit tx: %w", err))
	}
	return change, nil
}

// Apply performs one credit or debit inside the caller's transaction. It
// never retries; the caller owns commit and rollback.
func (s *LedgerServiceImpl) Apply(ctx context.Context, tx pgx.Tx, op domain.LedgerOperation) (*domain.BalanceChange, error) {
	if op.Amount <= 0 {
		s.metrics.RecordLedgerOp(op.Direction, apperror.CodeInvalidAmount)
		return nil, apperror.ErrInvalidAmount()
	}
	if !op.Direction.Valid() {
		return nil, apperror.Validation("entry direction must be credit or debit")
	}

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, tx, op.WalletID)
	if err != nil {
		return nil, s.reject(op, translateError(fmt.Errorf("lock wallet: %w", err)))
	}
	if wallet == nil {
		return nil, s.reject(op, apperror.ErrNotFound("wallet").WithDetails("wallet_id", op.WalletID.String()))
	}

	if !s.checksum.Verify(wallet) {
		s.escalateChecksum(ctx, wallet, op.TransactionRef)
		return nil, s.reject(op, apperror.ErrChecksumMismatch().WithDetails("wallet_id", wallet.ID.String()))
	}

	after, err := wallet.Apply(op.Direction, op.Amount)
	if err != nil {
		return nil, s.reject(op, ruleError(err, wallet, op.Amount))
	}

	if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, after, s.checksum.Checksum(wallet.ID, after)); err != nil {
		return nil, s.reject(op, translateError(fmt.Errorf("update balance: %w", err)))
	}

	entry := &domain.LedgerEntry{
		ID:             uuid.New(),
		WalletID:       wallet.ID,
		TransactionRef: op.TransactionRef,
		EntryType:      op.Direction,
		Amount:         op.Amount,
		BalanceBefore:  wallet.Balance,
		BalanceAfter:   after,
		Description:    op.Description,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return nil, s.reject(op, translateError(fmt.Errorf("append entry: %w", err)))
	}

	s.metrics.RecordLedgerOp(op.Direction, outcomeApplied)
	s.log.Debug().
		Str("wallet_id", wallet.ID.String()).
		Str("reference", op.TransactionRef).
		Str("direction", string(op.Direction)).
		Int64("amount", op.Amount).
		Int64("balance_after", after).
		Msg("ledger entry applied")

	return &domain.BalanceChange{
		WalletID:      wallet.ID,
		BalanceBefore: wallet.Balance,
		BalanceAfter:  after,
		Entry:         entry,
	}, nil
}

// LockWallets locks the distinct wallets in ascending id order so two
// opposite transfers cannot wait on each other.
func (s *LedgerServiceImpl) LockWallets(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error) {
	ordered := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i][:], ordered[j][:]) < 0
	})

	locked := make(map[uuid.UUID]*domain.Wallet, len(ordered))
	for _, id := range ordered {
		w, err := s.walletRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, translateError(fmt.Errorf("lock wallet %s: %w", id, err))
		}
		if w == nil {
			return nil, apperror.ErrNotFound("wallet").WithDetails("wallet_id", id.String())
		}
		locked[id] = w
	}
	return locked, nil
}

// checkReference rejects a caller-supplied reference that is too long, uses
// the generated prefix, or already labels ledger entries.
func (s *LedgerServiceImpl) checkReference(ctx context.Context, reference string) error {
	if len(reference) > MaxReferenceLength {
		return apperror.Validation(fmt.Sprintf("reference must be at most %d characters", MaxReferenceLength))
	}
	if strings.HasPrefix(strings.ToUpper(reference), ReferencePrefix) {
		return apperror.Validation("reference prefix "+ReferencePrefix+" is reserved").
			WithDetails("reference", reference)
	}
	existing, err := s.ledgerRepo.ListByReference(ctx, reference)
	if err != nil {
		return translateError(fmt.Errorf("check reference: %w", err))
	}
	if len(existing) > 0 {
		return apperror.ErrReferenceInUse().WithDetails("reference", reference)
	}
	return nil
}

func (s *LedgerServiceImpl) reject(op domain.LedgerOperation, err error) error {
	code := errorCode(err)
	if code == "" {
		code = apperror.CodeInternal
	}
	s.metrics.RecordLedgerOp(op.Direction, code)
	return err
}

// escalateChecksum reports a balance that no longer matches its checksum.
// The wallet is left untouched for manual reconciliation.
func (s *LedgerServiceImpl) escalateChecksum(ctx context.Context, w *domain.Wallet, reference string) {
	s.metrics.RecordChecksumFailure()
	s.log.Error().
		Str("wallet_id", w.ID.String()).
		Str("reference", reference).
		Str("error_code", apperror.CodeChecksumMismatch).
		Msg("balance checksum mismatch, mutation refused")

	if s.risk != nil {
		userID := w.UserID
		s.risk.Record(ctx, &userID, reference, domain.ActivityChecksumMismatch, 100, map[string]any{
			"wallet_id": w.ID.String(),
			"balance":   w.Balance,
		})
	}
}

// ruleError converts a wallet rule violation into its AppError.
func ruleError(err error, w *domain.Wallet, amount int64) error {
	if errors.Is(err, domain.ErrInsufficientBalance) {
		return apperror.ErrInsufficientBalance(w.Balance, amount).
			WithDetails("wallet_id", w.ID.String())
	}
	return translateError(err)
}
