package service

import (
	"context"
	"io"
	"testing"
	"time"

	"wallet-ledger/internal/adapter/storage/memory"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testChecksumSecret = "test-checksum-secret"

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// mockTx implements pgx.Tx for testing. Begin returns the same tx so
// savepoints can be exercised against mocks.
type mockTx struct{ pgx.Tx }

func (m *mockTx) Begin(_ context.Context) (pgx.Tx, error) { return m, nil }
func (m *mockTx) Rollback(_ context.Context) error        { return nil }
func (m *mockTx) Commit(_ context.Context) error          { return nil }

// fixedClock returns a settable clock for services with a now field.
type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time          { return c.t }
func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// engine wires every service over one in-memory store.
type engine struct {
	store     *memory.Store
	wallets   *memory.WalletRepo
	ledgerRep *memory.LedgerRepo
	txRepo    *memory.TransactionRepo
	limitRepo *memory.LimitRepo
	riskRepo  *memory.RiskRepo
	checksum  *HMACChecksumVerifier
	ledger    *LedgerServiceImpl
	pins      *PinServiceImpl
	limits    *LimitServiceImpl
	integrity *IntegrityServiceImpl
	walletSvc *WalletServiceImpl
	transfers *TransferServiceImpl
	clock     *fixedClock
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	store := memory.NewStore(2 * time.Second)
	e := &engine{
		store:     store,
		wallets:   memory.NewWalletRepo(store),
		ledgerRep: memory.NewLedgerRepo(store),
		txRepo:    memory.NewTransactionRepo(store),
		limitRepo: memory.NewLimitRepo(store),
		riskRepo:  memory.NewRiskRepo(store),
		checksum:  NewHMACChecksumVerifier(testChecksumSecret),
		clock:     &fixedClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
	}
	log := newTestLogger()

	risk := NewRiskService(e.riskRepo, log)
	audit := NewAuditService(memory.NewAuditRepo(store), log)

	e.ledger = NewLedgerService(e.wallets, e.ledgerRep, e.checksum, risk, store, nil, log)
	e.pins = NewPinService(e.wallets, NewArgon2HashServiceWithParams(cheapArgon2), risk, audit, store, nil, domain.DefaultMaxLockoutMinutes, log)
	e.pins.now = e.clock.Now
	e.limits = NewLimitService(e.limitRepo, ports.LimitDefaults{
		DailyLimit:             1_000_000,
		SingleTransactionLimit: 500_000,
		MaxDailyTransactions:   100,
	}, log)
	e.integrity = NewIntegrityService(e.wallets, e.ledgerRep, e.checksum, risk, audit, store, nil, log)
	e.walletSvc = NewWalletService(e.wallets, e.ledgerRep, e.checksum, audit, store, WalletPolicy{DefaultCurrency: "USD"}, log)
	e.transfers = NewTransferService(e.txRepo, e.ledgerRep, e.wallets, e.ledger, e.limits, e.pins, risk, nil, store, nil, TransferPolicy{
		DefaultCurrency:  "USD",
		IdempotencyTTL:   24 * time.Hour,
		ReferenceRetries: 3,
		PinRequiredTypes: []domain.TransactionType{domain.TransactionTypeWalletToWallet},
	}, log)
	e.transfers.now = e.clock.Now
	return e
}

// seedWallet creates a wallet with a sealed balance directly in the store.
func (e *engine) seedWallet(t *testing.T, balance int64) *domain.Wallet {
	t.Helper()
	w := &domain.Wallet{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		Name:           "primary",
		Kind:           domain.WalletKindPrimary,
		Currency:       "USD",
		Balance:        balance,
		MaxPinAttempts: domain.DefaultMaxPinAttempts,
		IsActive:       true,
	}
	w.LockoutDurationMinutes = domain.DefaultLockoutMinutes
	w.BalanceChecksum = e.checksum.Checksum(w.ID, balance)
	require.NoError(t, e.wallets.Create(context.Background(), w))
	if balance > 0 {
		// Opening entry so the ledger reconciles with the seeded balance.
		ctx := context.Background()
		tx, err := e.store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, e.ledgerRep.Append(ctx, tx, &domain.LedgerEntry{
			ID:             uuid.New(),
			WalletID:       w.ID,
			TransactionRef: "OPENING-" + w.ID.String(),
			EntryType:      domain.EntryTypeCredit,
			Amount:         balance,
			BalanceBefore:  0,
			BalanceAfter:   balance,
			CreatedAt:      e.clock.Now(),
		}))
		require.NoError(t, tx.Commit(ctx))
	}
	return w
}

func (e *engine) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	w, err := e.wallets.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, w)
	return w.Balance
}
