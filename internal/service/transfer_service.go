package service

import (
	"context"
	"encoding/json"
	"errors"
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
	"golang.org/x/sync/singleflight"
)

// Idempotent replay sources reported to metrics.
const (
	replaySourceCache    = "cache"
	replaySourceDatabase = "database"
)

// Transfer outcomes reported to metrics.
const (
	transferStatusReplayed = "replayed"
	transferStatusRejected = "rejected"
)

// TransferPolicy holds the orchestrator settings.
type TransferPolicy struct {
	DefaultCurrency      string
	IdempotencyTTL       time.Duration
	ReferenceRetries     int
	PinRequiredTypes     []domain.TransactionType
	LargeAmountThreshold int64
	LargeAmountScore     int
}

// TransferServiceImpl implements ports.TransferService. One transfer is one
// unit of work: idempotency reservation, wallet locks, both ledger legs, the
// limit booking and the status change commit or roll back together.
type TransferServiceImpl struct {
	txRepo     ports.TransactionRepository
	ledgerRepo ports.LedgerRepository
	walletRepo ports.WalletRepository
	ledger     ports.LedgerEngine
	limits     ports.LimitEnforcer
	pins       ports.PinGuard
	risk       ports.RiskRecorder
	cache      ports.IdempotencyCache
	transactor ports.DBTransactor
	metrics    ports.MetricsRecorder
	policy     TransferPolicy
	pinTypes   map[domain.TransactionType]struct{}
	log        zerolog.Logger
	now        func() time.Time
	newRef     func() string
	lookups    singleflight.Group
}

// NewTransferService creates a new TransferServiceImpl. cache may be nil.
func NewTransferService(
	txRepo ports.TransactionRepository,
	ledgerRepo ports.LedgerRepository,
	walletRepo ports.WalletRepository,
	ledger ports.LedgerEngine,
	limits ports.LimitEnforcer,
	pins ports.PinGuard,
	risk ports.RiskRecorder,
	cache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	metrics ports.MetricsRecorder,
	policy TransferPolicy,
	log zerolog.Logger,
) *TransferServiceImpl {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if policy.ReferenceRetries <= 0 {
		policy.ReferenceRetries = 1
	}
	pinTypes := make(map[domain.TransactionType]struct{}, len(policy.PinRequiredTypes))
	for _, t := range policy.PinRequiredTypes {
		pinTypes[t] = struct{}{}
	}
	return &TransferServiceImpl{
		txRepo:     txRepo,
		ledgerRepo: ledgerRepo,
		walletRepo: walletRepo,
		ledger:     ledger,
		limits:     limits,
		pins:       pins,
		risk:       risk,
		cache:      cache,
		transactor: transactor,
		metrics:    metrics,
		policy:     policy,
		pinTypes:   pinTypes,
		log:        logger.Component(log, "transfer"),
		now:        time.Now,
		newRef:     NewReference,
	}
}

// parties are the locked-in view of both sides loaded before execution.
type parties struct {
	sender   *domain.Wallet
	receiver *domain.Wallet
	currency string
}

// Transfer executes req at most once per idempotency key.
func (s *TransferServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	start := s.now()

	if err := s.validate(req); err != nil {
		s.metrics.RecordTransfer(req.Type, transferStatusRejected, s.now().Sub(start))
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if res := s.cachedResult(ctx, req.IdempotencyKey); res != nil {
			s.metrics.RecordTransfer(req.Type, transferStatusReplayed, s.now().Sub(start))
			return res, nil
		}
		existing, err := s.txRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, translateError(fmt.Errorf("lookup idempotency key: %w", err))
		}
		if existing != nil && existing.Status == domain.TransactionStatusSuccessful && !existing.IdempotencyExpired(s.now()) {
			res, err := s.replay(ctx, existing, replaySourceDatabase)
			if err == nil {
				s.metrics.RecordTransfer(req.Type, transferStatusReplayed, s.now().Sub(start))
			}
			return res, err
		}
	}

	p, err := s.loadParties(ctx, req)
	if err != nil {
		s.metrics.RecordTransfer(req.Type, transferStatusRejected, s.now().Sub(start))
		return nil, err
	}

	reference := s.newRef()
	var res *ports.TransferResult
	err = s.authorize(ctx, req, p)
	if err == nil {
		res, reference, err = s.execute(ctx, req, p, reference)
	}
	if err != nil {
		if isBusinessFailure(err) {
			err = s.recordFailure(ctx, req, p, reference, err)
		}
		s.metrics.RecordTransfer(req.Type, string(domain.TransactionStatusFailed), s.now().Sub(start))
		return nil, err
	}

	if res.Replayed {
		s.metrics.RecordTransfer(req.Type, transferStatusReplayed, s.now().Sub(start))
		return res, nil
	}

	s.afterCommit(ctx, req, p, res)
	s.metrics.RecordTransfer(req.Type, string(domain.TransactionStatusSuccessful), s.now().Sub(start))
	return res, nil
}

// GetByReference returns a transaction with its ledger entries.
// Concurrent lookups of one reference share a single read.
func (s *TransferServiceImpl) GetByReference(ctx context.Context, reference string) (*ports.TransferResult, error) {
	v, err, _ := s.lookups.Do(reference, func() (any, error) {
		return s.loadByReference(ctx, reference)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ports.TransferResult), nil
}

func (s *TransferServiceImpl) loadByReference(ctx context.Context, reference string) (*ports.TransferResult, error) {
	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, translateError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	entries, err := s.ledgerRepo.ListByReference(ctx, reference)
	if err != nil {
		return nil, translateError(fmt.Errorf("list entries: %w", err))
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return &ports.TransferResult{Transaction: txn, Entries: entries}, nil
}

func (s *TransferServiceImpl) validate(req ports.TransferRequest) error {
	if !req.Type.Valid() {
		return apperror.Validation("unknown transaction type")
	}
	if req.Amount <= 0 {
		return apperror.ErrInvalidAmount()
	}

	hasSender, hasReceiver := req.SenderWalletID != nil, req.ReceiverWalletID != nil
	switch {
	case req.Type.NeedsSender() && !hasSender:
		return apperror.ErrInvalidParties(fmt.Sprintf("%s requires a sender wallet", req.Type))
	case !req.Type.NeedsSender() && hasSender:
		return apperror.ErrInvalidParties(fmt.Sprintf("%s does not take a sender wallet", req.Type))
	case req.Type.NeedsReceiver() && !hasReceiver:
		return apperror.ErrInvalidParties(fmt.Sprintf("%s requires a receiver wallet", req.Type))
	case !req.Type.NeedsReceiver() && hasReceiver:
		return apperror.ErrInvalidParties(fmt.Sprintf("%s does not take a receiver wallet", req.Type))
	case hasSender && hasReceiver && *req.SenderWalletID == *req.ReceiverWalletID:
		return apperror.ErrInvalidParties("sender and receiver must be different wallets")
	}
	return nil
}

func (s *TransferServiceImpl) loadParties(ctx context.Context, req ports.TransferRequest) (*parties, error) {
	p := &parties{}
	var err error
	if req.SenderWalletID != nil {
		if p.sender, err = s.wallet(ctx, *req.SenderWalletID); err != nil {
			return nil, err
		}
	}
	if req.ReceiverWalletID != nil {
		if p.receiver, err = s.wallet(ctx, *req.ReceiverWalletID); err != nil {
			return nil, err
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		switch {
		case p.sender != nil:
			currency = p.sender.Currency
		case p.receiver != nil:
			currency = p.receiver.Currency
		default:
			currency = s.policy.DefaultCurrency
		}
	}
	for _, w := range []*domain.Wallet{p.sender, p.receiver} {
		if w != nil && w.Currency != currency {
			return nil, apperror.ErrCurrencyMismatch().
				WithDetails("wallet_id", w.ID.String()).
				WithDetails("wallet_currency", w.Currency)
		}
	}
	p.currency = currency
	return p, nil
}

func (s *TransferServiceImpl) wallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet").WithDetails("wallet_id", id.String())
	}
	return w, nil
}

// authorize runs the checks that need no lock: a limit pre-check for the
// sender's user and the PIN. The limit is checked again under lock in execute.
func (s *TransferServiceImpl) authorize(ctx context.Context, req ports.TransferRequest, p *parties) error {
	if p.sender == nil {
		return nil
	}

	l, err := s.limits.Status(ctx, p.sender.UserID, s.now())
	if err != nil {
		return err
	}
	if err := limitError(l, l.Check(req.Amount)); err != nil {
		return err
	}

	if _, required := s.pinTypes[req.Type]; required {
		if req.Pin == "" {
			return apperror.ErrPinRequired()
		}
		return s.pins.Verify(ctx, p.sender.ID, req.Pin)
	}
	return nil
}

// execute runs the transfer unit of work. It returns the reference the
// pending row was inserted under so a failure can be recorded against it.
func (s *TransferServiceImpl) execute(ctx context.Context, req ports.TransferRequest, p *parties, reference string) (*ports.TransferResult, string, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, reference, translateError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := s.now().UTC()
	if req.IdempotencyKey != "" {
		held, err := s.txRepo.GetByIdempotencyKeyForUpdate(ctx, dbTx, req.IdempotencyKey)
		if err != nil {
			return nil, reference, translateError(fmt.Errorf("lock idempotency key: %w", err))
		}
		if held != nil {
			switch {
			case held.IdempotencyExpired(now):
				if err := s.txRepo.ReleaseIdempotencyKey(ctx, dbTx, held.ID); err != nil {
					return nil, reference, translateError(fmt.Errorf("release idempotency key: %w", err))
				}
			case held.Status == domain.TransactionStatusSuccessful:
				res, err := s.replay(ctx, held, replaySourceDatabase)
				return res, held.Reference, err
			default:
				return nil, reference, apperror.ErrDuplicateIdempotencyKey()
			}
		}
	}

	txn := &domain.Transaction{
		ID:          uuid.New(),
		Reference:   reference,
		Type:        req.Type,
		Amount:      req.Amount,
		Currency:    p.currency,
		Status:      domain.TransactionStatusPending,
		Description: req.Description,
		InitiatedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.sender != nil {
		txn.SenderWalletID = &p.sender.ID
	}
	if p.receiver != nil {
		txn.ReceiverWalletID = &p.receiver.ID
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		expires := now.Add(s.policy.IdempotencyTTL)
		txn.IdempotencyKey = &key
		txn.IdempotencyExpiresAt = &expires
	}

	if err := s.insertWithRetry(ctx, dbTx, txn); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotency) {
			dbTx.Rollback(ctx) //nolint:errcheck
			return s.concurrentWinner(ctx, req.IdempotencyKey)
		}
		return nil, txn.Reference, translateError(err)
	}
	reference = txn.Reference

	ids := make([]uuid.UUID, 0, 2)
	if p.sender != nil {
		ids = append(ids, p.sender.ID)
	}
	if p.receiver != nil {
		ids = append(ids, p.receiver.ID)
	}
	if _, err := s.ledger.LockWallets(ctx, dbTx, ids...); err != nil {
		return nil, reference, err
	}

	if p.sender != nil {
		if _, err := s.limits.CheckAndReserve(ctx, dbTx, p.sender.UserID, req.Amount, now); err != nil {
			return nil, reference, err
		}
	}

	entries := make([]domain.LedgerEntry, 0, 2)
	if p.sender != nil {
		change, err := s.ledger.Apply(ctx, dbTx, domain.LedgerOperation{
			WalletID:       p.sender.ID,
			Direction:      domain.EntryTypeDebit,
			Amount:         req.Amount,
			TransactionRef: reference,
			Description:    req.Description,
		})
		if err != nil {
			return nil, reference, err
		}
		entries = append(entries, *change.Entry)
	}
	if p.receiver != nil {
		change, err := s.ledger.Apply(ctx, dbTx, domain.LedgerOperation{
			WalletID:       p.receiver.ID,
			Direction:      domain.EntryTypeCredit,
			Amount:         req.Amount,
			TransactionRef: reference,
			Description:    req.Description,
		})
		if err != nil {
			return nil, reference, err
		}
		entries = append(entries, *change.Entry)
	}

	if p.sender != nil {
		if err := s.limits.Commit(ctx, dbTx, p.sender.UserID, req.Amount, now); err != nil {
			return nil, reference, err
		}
	}

	if err := txn.MarkSuccessful(s.now().UTC()); err != nil {
		return nil, reference, translateError(err)
	}
	if err := s.txRepo.UpdateStatus(ctx, dbTx, txn); err != nil {
		return nil, reference, translateError(fmt.Errorf("complete transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, reference, translateError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("reference", reference).
		Str("type", string(req.Type)).
		Int64("amount", req.Amount).
		Str("currency", p.currency).
		Msg("transfer completed")

	return &ports.TransferResult{Transaction: txn, Entries: entries}, reference, nil
}

// insertWithRetry inserts txn inside a savepoint, drawing a new reference on
// each collision. The savepoint keeps the outer transaction usable.
func (s *TransferServiceImpl) insertWithRetry(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	for attempt := 1; ; attempt++ {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return fmt.Errorf("savepoint: %w", err)
		}
		err = s.txRepo.Create(ctx, sp, txn)
		if err == nil {
			if err := sp.Commit(ctx); err != nil {
				return fmt.Errorf("release savepoint: %w", err)
			}
			return nil
		}
		sp.Rollback(ctx) //nolint:errcheck

		if !errors.Is(err, domain.ErrReferenceCollision) || attempt >= s.policy.ReferenceRetries {
			return err
		}
		s.log.Warn().
			Str("reference", txn.Reference).
			Int("attempt", attempt).
			Msg("transaction reference collision, regenerating")
		txn.Reference = s.newRef()
	}
}

// concurrentWinner resolves a lost race on the idempotency key by returning
// the committed transaction of the request that won it.
func (s *TransferServiceImpl) concurrentWinner(ctx context.Context, key string) (*ports.TransferResult, string, error) {
	winner, err := s.txRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, "", translateError(fmt.Errorf("lookup idempotency key: %w", err))
	}
	if winner == nil || winner.Status != domain.TransactionStatusSuccessful {
		return nil, "", apperror.ErrDuplicateIdempotencyKey()
	}
	res, err := s.replay(ctx, winner, replaySourceDatabase)
	return res, winner.Reference, err
}

func (s *TransferServiceImpl) replay(ctx context.Context, txn *domain.Transaction, source string) (*ports.TransferResult, error) {
	entries, err := s.ledgerRepo.ListByReference(ctx, txn.Reference)
	if err != nil {
		return nil, translateError(fmt.Errorf("list entries: %w", err))
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	s.metrics.RecordIdempotentReplay(source)
	s.log.Info().
		Str("reference", txn.Reference).
		Str("source", source).
		Msg("idempotent replay")
	return &ports.TransferResult{Transaction: txn, Entries: entries, Replayed: true}, nil
}

func (s *TransferServiceImpl) cachedResult(ctx context.Context, key string) *ports.TransferResult {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("idempotency cache read failed, falling back to database")
		return nil
	}
	if raw == nil {
		return nil
	}
	var res ports.TransferResult
	if err := json.Unmarshal(raw, &res); err != nil || res.Transaction == nil {
		s.log.Warn().Err(err).Msg("discarding unreadable idempotency cache entry")
		return nil
	}
	res.Replayed = true
	s.metrics.RecordIdempotentReplay(replaySourceCache)
	return &res
}

// afterCommit runs the side effects of a committed transfer. None of them
// can fail the transfer.
func (s *TransferServiceImpl) afterCommit(ctx context.Context, req ports.TransferRequest, p *parties, res *ports.TransferResult) {
	txn := res.Transaction

	if s.cache != nil && txn.IdempotencyKey != nil && txn.IdempotencyExpiresAt != nil {
		if ttl := txn.IdempotencyExpiresAt.Sub(s.now()); ttl > 0 {
			if raw, err := json.Marshal(res); err == nil {
				if err := s.cache.Set(ctx, *txn.IdempotencyKey, raw, ttl); err != nil {
					s.log.Warn().Err(err).Str("reference", txn.Reference).Msg("idempotency cache write failed")
				}
			}
		}
	}

	if s.risk != nil && s.policy.LargeAmountThreshold > 0 && req.Amount >= s.policy.LargeAmountThreshold {
		s.risk.Record(ctx, ownerOf(p), txn.Reference, domain.ActivityLargeTransaction, s.policy.LargeAmountScore, map[string]any{
			"amount":    req.Amount,
			"currency":  txn.Currency,
			"type":      string(txn.Type),
			"threshold": s.policy.LargeAmountThreshold,
		})
	}
}

// recordFailure persists a failed transaction row in its own unit of work
// and returns cause annotated with the reference.
func (s *TransferServiceImpl) recordFailure(ctx context.Context, req ports.TransferRequest, p *parties, reference string, cause error) error {
	code := errorCode(cause)
	now := s.now().UTC()
	reason := code
	var appErr *apperror.AppError
	if errors.As(cause, &appErr) {
		reason = code + ": " + appErr.Message
	}

	txn := &domain.Transaction{
		ID:          uuid.New(),
		Reference:   reference,
		Type:        req.Type,
		Amount:      req.Amount,
		Currency:    p.currency,
		Status:      domain.TransactionStatusPending,
		Description: req.Description,
		InitiatedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.sender != nil {
		txn.SenderWalletID = &p.sender.ID
	}
	if p.receiver != nil {
		txn.ReceiverWalletID = &p.receiver.ID
	}
	_ = txn.MarkFailed(reason, now)

	if err := s.persistFailed(ctx, txn); err != nil {
		s.log.Error().Err(err).Str("reference", txn.Reference).Msg("failed to record failed transaction")
	} else {
		s.log.Info().
			Str("reference", txn.Reference).
			Str("error_code", code).
			Msg("transfer failed")
	}

	if s.risk != nil && strings.HasPrefix(code, "LIM_") {
		s.risk.Record(ctx, ownerOf(p), txn.Reference, domain.ActivityLimitBreach, 30, map[string]any{
			"amount":     req.Amount,
			"error_code": code,
		})
	}

	if appErr != nil {
		return appErr.WithDetails("reference", txn.Reference)
	}
	return cause
}

func (s *TransferServiceImpl) persistFailed(ctx context.Context, txn *domain.Transaction) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.insertWithRetry(ctx, dbTx, txn); err != nil {
		return err
	}
	return dbTx.Commit(ctx)
}

// ownerOf returns the user charged by the transfer, or the receiver's user
// for inbound funding.
func ownerOf(p *parties) *uuid.UUID {
	switch {
	case p.sender != nil:
		id := p.sender.UserID
		return &id
	case p.receiver != nil:
		id := p.receiver.UserID
		return &id
	}
	return nil
}
