package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct{ s *Store }

// NewWalletRepo creates a wallet repository over s.
func NewWalletRepo(s *Store) *WalletRepo { return &WalletRepo{s: s} }

func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[w.ID]; ok {
		return fmt.Errorf("insert wallet: duplicate id %s", w.ID)
	}
	if w.Balance < 0 {
		return fmt.Errorf("insert wallet: negative balance")
	}
	r.s.wallets[w.ID] = *w
	return nil
}

func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *WalletRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	r.s.mu.Lock()
	var wallets []domain.Wallet
	for _, w := range r.s.wallets {
		if w.UserID == userID {
			wallets = append(wallets, w)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(wallets, func(i, j int) bool {
		pi, pj := wallets[i].Kind == domain.WalletKindPrimary, wallets[j].Kind == domain.WalletKindPrimary
		if pi != pj {
			return pi
		}
		return wallets[i].CreatedAt.Before(wallets[j].CreatedAt)
	})
	return wallets, nil
}

func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	t, err := r.s.tx(tx)
	if err != nil {
		return nil, err
	}
	if err := r.s.lock(ctx, t, "wallet:"+id.String()); err != nil {
		return nil, fmt.Errorf("get wallet for update by id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64, checksum string) error {
	if balance < 0 {
		return fmt.Errorf("update wallet balance: balance check violated for %s", walletID)
	}
	return r.update(tx, walletID, func(w *domain.Wallet) {
		w.Balance = balance
		w.BalanceChecksum = checksum
	})
}

func (r *WalletRepo) UpdateChecksum(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, checksum string) error {
	return r.update(tx, walletID, func(w *domain.Wallet) {
		w.BalanceChecksum = checksum
	})
}

func (r *WalletRepo) UpdatePinState(ctx context.Context, tx pgx.Tx, src *domain.Wallet) error {
	return r.update(tx, src.ID, func(w *domain.Wallet) {
		w.PinHash = src.PinHash
		w.FailedPinAttempts = src.FailedPinAttempts
		w.PinLockedUntil = src.PinLockedUntil
		w.LastFailedAttemptAt = src.LastFailedAttemptAt
	})
}

func (r *WalletRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, src *domain.Wallet) error {
	return r.update(tx, src.ID, func(w *domain.Wallet) {
		w.IsActive = src.IsActive
		w.IsLocked = src.IsLocked
		w.LockedAt = src.LockedAt
		w.LockedBy = src.LockedBy
	})
}

func (r *WalletRepo) update(tx pgx.Tx, id uuid.UUID, mutate func(*domain.Wallet)) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.s.wallets[id]
	if !ok {
		return fmt.Errorf("wallet not found: %s", id)
	}
	w := old
	mutate(&w)
	w.UpdatedAt = time.Now().UTC()
	r.s.wallets[id] = w
	t.record(func() { r.s.wallets[id] = old })
	return nil
}

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct{ s *Store }

// NewLedgerRepo creates a ledger repository over s.
func NewLedgerRepo(s *Store) *LedgerRepo { return &LedgerRepo{s: s} }

func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := entryKey{reference: e.TransactionRef, walletID: e.WalletID, entryType: e.EntryType}
	if _, dup := r.s.entryKeys[key]; dup {
		return fmt.Errorf("insert ledger entry: %w", domain.ErrDuplicateEntry)
	}
	r.s.entryKeys[key] = struct{}{}
	r.s.entries = append(r.s.entries, *e)
	id := e.ID
	t.record(func() {
		delete(r.s.entryKeys, key)
		for i := len(r.s.entries) - 1; i >= 0; i-- {
			if r.s.entries[i].ID == id {
				r.s.entries = append(r.s.entries[:i], r.s.entries[i+1:]...)
				break
			}
		}
	})
	return nil
}

// ListByWallet returns entries newest first.
func (r *LedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	r.s.mu.Lock()
	var all []domain.LedgerEntry
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		if r.s.entries[i].WalletID == walletID {
			all = append(all, r.s.entries[i])
		}
	}
	r.s.mu.Unlock()

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ListByReference returns a transaction's entries, debit first.
func (r *LedgerRepo) ListByReference(ctx context.Context, reference string) ([]domain.LedgerEntry, error) {
	r.s.mu.Lock()
	var entries []domain.LedgerEntry
	for _, e := range r.s.entries {
		if e.TransactionRef == reference {
			entries = append(entries, e)
		}
	}
	r.s.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].EntryType == domain.EntryTypeDebit && entries[j].EntryType != domain.EntryTypeDebit
	})
	return entries, nil
}

func (r *LedgerRepo) Summarize(ctx context.Context, walletID uuid.UUID) (*ports.LedgerSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	s := &ports.LedgerSummary{}
	for _, e := range r.s.entries {
		if e.WalletID != walletID {
			continue
		}
		switch e.EntryType {
		case domain.EntryTypeCredit:
			s.Credits += e.Amount
		case domain.EntryTypeDebit:
			s.Debits += e.Amount
		}
		s.EntryCount++
		after := e.BalanceAfter
		s.LastBalanceAfter = &after
	}
	return s, nil
}

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct{ s *Store }

// NewTransactionRepo creates a transaction repository over s.
func NewTransactionRepo(s *Store) *TransactionRepo { return &TransactionRepo{s: s} }

func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, dup := r.s.byReference[txn.Reference]; dup {
		return fmt.Errorf("insert transaction: %w", domain.ErrReferenceCollision)
	}
	var key string
	if txn.IdempotencyKey != nil {
		key = *txn.IdempotencyKey
		if _, dup := r.s.byIdemKey[key]; dup {
			return fmt.Errorf("insert transaction: %w", domain.ErrDuplicateIdempotency)
		}
		r.s.byIdemKey[key] = txn.ID
	}
	r.s.transactions[txn.ID] = *txn
	r.s.byReference[txn.Reference] = txn.ID

	id, ref := txn.ID, txn.Reference
	t.record(func() {
		delete(r.s.transactions, id)
		delete(r.s.byReference, ref)
		if key != "" {
			delete(r.s.byIdemKey, key)
		}
	})
	return nil
}

func (r *TransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.byReference[reference]
	if !ok {
		return nil, nil
	}
	txn := r.s.transactions[id]
	return &txn, nil
}

func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.byIdemKey[key]
	if !ok {
		return nil, nil
	}
	txn := r.s.transactions[id]
	return &txn, nil
}

// GetByIdempotencyKeyForUpdate locks the key itself, so concurrent requests
// carrying the same key serialize even before a row exists.
func (r *TransactionRepo) GetByIdempotencyKeyForUpdate(ctx context.Context, tx pgx.Tx, key string) (*domain.Transaction, error) {
	t, err := r.s.tx(tx)
	if err != nil {
		return nil, err
	}
	if err := r.s.lock(ctx, t, "idem:"+key); err != nil {
		return nil, fmt.Errorf("get transaction for update by idempotency key: %w", err)
	}
	return r.GetByIdempotencyKey(ctx, key)
}

func (r *TransactionRepo) ReleaseIdempotencyKey(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.s.transactions[id]
	if !ok || old.IdempotencyKey == nil {
		return nil
	}
	key := *old.IdempotencyKey
	updated := old
	updated.IdempotencyKey = nil
	updated.UpdatedAt = time.Now().UTC()
	r.s.transactions[id] = updated
	delete(r.s.byIdemKey, key)
	t.record(func() {
		r.s.transactions[id] = old
		r.s.byIdemKey[key] = id
	})
	return nil
}

// UpdateStatus moves a pending row to its terminal state.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.s.transactions[txn.ID]
	if !ok || old.Status != domain.TransactionStatusPending {
		return fmt.Errorf("transaction %s: %w", txn.ID, domain.ErrInvalidTransition)
	}
	updated := old
	updated.Status = txn.Status
	updated.FailureReason = txn.FailureReason
	updated.ProcessedAt = txn.ProcessedAt
	updated.CompletedAt = txn.CompletedAt
	updated.FailedAt = txn.FailedAt
	updated.UpdatedAt = txn.UpdatedAt
	r.s.transactions[txn.ID] = updated
	t.record(func() { r.s.transactions[txn.ID] = old })
	return nil
}

// LimitRepo implements ports.LimitRepository.
type LimitRepo struct{ s *Store }

// NewLimitRepo creates a limit repository over s.
func NewLimitRepo(s *Store) *LimitRepo { return &LimitRepo{s: s} }

func (r *LimitRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, day time.Time, defaults ports.LimitDefaults) (*domain.TransactionLimit, error) {
	t, err := r.s.tx(tx)
	if err != nil {
		return nil, err
	}
	k := limitKey{userID: userID, day: day.UTC()}
	if err := r.s.lock(ctx, t, fmt.Sprintf("limit:%s:%s", userID, k.day.Format("2006-01-02"))); err != nil {
		return nil, fmt.Errorf("get transaction limit for update: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.limits[k]
	if !ok {
		now := time.Now().UTC()
		l = domain.TransactionLimit{
			ID:                     uuid.New(),
			UserID:                 userID,
			LimitDate:              k.day,
			DailyLimit:             defaults.DailyLimit,
			SingleTransactionLimit: defaults.SingleTransactionLimit,
			MaxDailyTransactions:   defaults.MaxDailyTransactions,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		r.s.limits[k] = l
		t.record(func() { delete(r.s.limits, k) })
	}
	return &l, nil
}

func (r *LimitRepo) Get(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.TransactionLimit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.limits[limitKey{userID: userID, day: day.UTC()}]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r *LimitRepo) AddUsage(ctx context.Context, tx pgx.Tx, userID uuid.UUID, day time.Time, amount int64) error {
	t, err := r.s.tx(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := limitKey{userID: userID, day: day.UTC()}
	old, ok := r.s.limits[k]
	if !ok {
		return fmt.Errorf("transaction limit not found: user %s", userID)
	}
	l := old
	l.DailySpent += amount
	l.DailyTransactionCount++
	if l.DailySpent > l.DailyLimit {
		return fmt.Errorf("add limit usage: daily spent exceeds limit for user %s", userID)
	}
	l.UpdatedAt = time.Now().UTC()
	r.s.limits[k] = l
	t.record(func() { r.s.limits[k] = old })
	return nil
}

// RiskRepo implements ports.RiskRepository.
type RiskRepo struct{ s *Store }

// NewRiskRepo creates a risk repository over s.
func NewRiskRepo(s *Store) *RiskRepo { return &RiskRepo{s: s} }

func (r *RiskRepo) Create(ctx context.Context, a *domain.SuspiciousActivity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.risks = append(r.s.risks, *a)
	return nil
}

// List returns a copy of every recorded activity.
func (r *RiskRepo) List() []domain.SuspiciousActivity {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.SuspiciousActivity(nil), r.s.risks...)
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ s *Store }

// NewAuditRepo creates an audit repository over s.
func NewAuditRepo(s *Store) *AuditRepo { return &AuditRepo{s: s} }

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, *log)
	return nil
}

// List returns a copy of every audit entry.
func (r *AuditRepo) List() []domain.AuditLog {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.AuditLog(nil), r.s.audits...)
}

var (
	_ ports.WalletRepository      = (*WalletRepo)(nil)
	_ ports.LedgerRepository      = (*LedgerRepo)(nil)
	_ ports.TransactionRepository = (*TransactionRepo)(nil)
	_ ports.LimitRepository       = (*LimitRepo)(nil)
	_ ports.RiskRepository        = (*RiskRepo)(nil)
	_ ports.AuditRepository       = (*AuditRepo)(nil)
	_ ports.DBTransactor          = (*Store)(nil)
	_ ports.HealthChecker         = (*Store)(nil)
)
