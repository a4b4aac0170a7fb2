package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWallet(t *testing.T, s *Store, balance int64) *domain.Wallet {
	t.Helper()
	w := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Kind:      domain.WalletKindPrimary,
		Currency:  "USD",
		Balance:   balance,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, NewWalletRepo(s).Create(context.Background(), w))
	return w
}

func TestTx_RollbackRestoresRows(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	wallets := NewWalletRepo(s)
	w := seedWallet(t, s, 10000)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, wallets.UpdateBalance(ctx, tx, w.ID, 7000, "sum"))
	require.NoError(t, tx.Rollback(ctx))

	got, err := wallets.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.Balance)
	assert.ErrorIs(t, tx.Commit(ctx), pgx.ErrTxClosed)
}

func TestTx_CommitKeepsRows(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	wallets := NewWalletRepo(s)
	w := seedWallet(t, s, 10000)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, wallets.UpdateBalance(ctx, tx, w.ID, 7000, "sum"))
	require.NoError(t, tx.Commit(ctx))

	got, _ := wallets.GetByID(ctx, w.ID)
	assert.Equal(t, int64(7000), got.Balance)
	assert.Equal(t, "sum", got.BalanceChecksum)
}

func TestTx_SavepointRollbackKeepsOuterWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	txns := NewTransactionRepo(s)
	wallets := NewWalletRepo(s)
	w := seedWallet(t, s, 500)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, wallets.UpdateBalance(ctx, tx, w.ID, 400, "a"))

	sp, err := tx.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txns.Create(ctx, sp, &domain.Transaction{ID: uuid.New(), Reference: "WTX-1", Status: domain.TransactionStatusPending}))
	require.NoError(t, sp.Rollback(ctx))
	require.NoError(t, tx.Commit(ctx))

	got, _ := txns.GetByReference(ctx, "WTX-1")
	assert.Nil(t, got)
	wal, _ := wallets.GetByID(ctx, w.ID)
	assert.Equal(t, int64(400), wal.Balance)
}

func TestTx_OuterRollbackUndoesCommittedSavepoint(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	txns := NewTransactionRepo(s)

	tx, _ := s.Begin(ctx)
	sp, _ := tx.Begin(ctx)
	require.NoError(t, txns.Create(ctx, sp, &domain.Transaction{ID: uuid.New(), Reference: "WTX-2", Status: domain.TransactionStatusPending}))
	require.NoError(t, sp.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx))

	got, _ := txns.GetByReference(ctx, "WTX-2")
	assert.Nil(t, got)
}

func TestLock_BlocksUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := NewStore(2 * time.Second)
	wallets := NewWalletRepo(s)
	w := seedWallet(t, s, 100)

	first, _ := s.Begin(ctx)
	_, err := wallets.GetByIDForUpdate(ctx, first, w.ID)
	require.NoError(t, err)

	acquired := make(chan int64, 1)
	go func() {
		second, _ := s.Begin(ctx)
		defer second.Rollback(ctx)
		got, err := wallets.GetByIDForUpdate(ctx, second, w.ID)
		if err != nil {
			acquired <- -1
			return
		}
		acquired <- got.Balance
	}()

	select {
	case <-acquired:
		t.Fatal("second transaction acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, wallets.UpdateBalance(ctx, first, w.ID, 40, "x"))
	require.NoError(t, first.Commit(ctx))

	select {
	case bal := <-acquired:
		assert.Equal(t, int64(40), bal)
	case <-time.After(time.Second):
		t.Fatal("lock was not released on commit")
	}
}

func TestLock_Reentrant(t *testing.T) {
	ctx := context.Background()
	s := NewStore(50 * time.Millisecond)
	wallets := NewWalletRepo(s)
	w := seedWallet(t, s, 100)

	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx)
	_, err := wallets.GetByIDForUpdate(ctx, tx, w.ID)
	require.NoError(t, err)

	sp, _ := tx.Begin(ctx)
	_, err = wallets.GetByIDForUpdate(ctx, sp, w.ID)
	assert.NoError(t, err)
}

func TestLock_Timeout(t *testing.T) {
	ctx := context.Background()
	s := NewStore(30 * time.Millisecond)
	wallets := NewWalletRepo(s)
	w := seedWallet(t, s, 100)

	holder, _ := s.Begin(ctx)
	defer holder.Rollback(ctx)
	_, err := wallets.GetByIDForUpdate(ctx, holder, w.ID)
	require.NoError(t, err)

	waiter, _ := s.Begin(ctx)
	defer waiter.Rollback(ctx)
	_, err = wallets.GetByIDForUpdate(ctx, waiter, w.ID)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
}

func TestLock_ContextCancelled(t *testing.T) {
	s := NewStore(time.Minute)
	wallets := NewWalletRepo(s)
	w := seedWallet(t, s, 100)

	holder, _ := s.Begin(context.Background())
	defer holder.Rollback(context.Background())
	_, err := wallets.GetByIDForUpdate(context.Background(), holder, w.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	waiter, _ := s.Begin(context.Background())
	defer waiter.Rollback(context.Background())
	_, err = wallets.GetByIDForUpdate(ctx, waiter, w.ID)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
}

func TestTransactionRepo_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	txns := NewTransactionRepo(s)
	key := "order-1"

	tx, _ := s.Begin(ctx)
	require.NoError(t, txns.Create(ctx, tx, &domain.Transaction{ID: uuid.New(), Reference: "WTX-A", IdempotencyKey: &key, Status: domain.TransactionStatusPending}))

	err := txns.Create(ctx, tx, &domain.Transaction{ID: uuid.New(), Reference: "WTX-A", Status: domain.TransactionStatusPending})
	assert.ErrorIs(t, err, domain.ErrReferenceCollision)

	err = txns.Create(ctx, tx, &domain.Transaction{ID: uuid.New(), Reference: "WTX-B", IdempotencyKey: &key, Status: domain.TransactionStatusPending})
	assert.ErrorIs(t, err, domain.ErrDuplicateIdempotency)
	require.NoError(t, tx.Commit(ctx))

	got, _ := txns.GetByIdempotencyKey(ctx, key)
	require.NotNil(t, got)
	assert.Equal(t, "WTX-A", got.Reference)
}

func TestTransactionRepo_ReleaseAndStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	txns := NewTransactionRepo(s)
	key := "order-2"
	txn := &domain.Transaction{ID: uuid.New(), Reference: "WTX-C", IdempotencyKey: &key, Status: domain.TransactionStatusPending}

	tx, _ := s.Begin(ctx)
	require.NoError(t, txns.Create(ctx, tx, txn))
	require.NoError(t, txn.MarkSuccessful(time.Now()))
	require.NoError(t, txns.UpdateStatus(ctx, tx, txn))
	assert.ErrorIs(t, txns.UpdateStatus(ctx, tx, txn), domain.ErrInvalidTransition)
	require.NoError(t, txns.ReleaseIdempotencyKey(ctx, tx, txn.ID))
	require.NoError(t, tx.Commit(ctx))

	got, _ := txns.GetByIdempotencyKey(ctx, key)
	assert.Nil(t, got)
	byRef, _ := txns.GetByReference(ctx, "WTX-C")
	assert.Equal(t, domain.TransactionStatusSuccessful, byRef.Status)
	assert.Nil(t, byRef.IdempotencyKey)
}

func TestLedgerRepo_DuplicateAndQueries(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	ledger := NewLedgerRepo(s)
	walletID := uuid.New()

	tx, _ := s.Begin(ctx)
	credit := &domain.LedgerEntry{ID: uuid.New(), WalletID: walletID, TransactionRef: "R1", EntryType: domain.EntryTypeCredit, Amount: 10000, BalanceAfter: 10000}
	debit := &domain.LedgerEntry{ID: uuid.New(), WalletID: walletID, TransactionRef: "R2", EntryType: domain.EntryTypeDebit, Amount: 3000, BalanceBefore: 10000, BalanceAfter: 7000}
	require.NoError(t, ledger.Append(ctx, tx, credit))
	require.NoError(t, ledger.Append(ctx, tx, debit))

	dup := *debit
	dup.ID = uuid.New()
	assert.ErrorIs(t, ledger.Append(ctx, tx, &dup), domain.ErrDuplicateEntry)
	require.NoError(t, tx.Commit(ctx))

	entries, total, err := ledger.ListByWallet(ctx, walletID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "R2", entries[0].TransactionRef)

	sum, err := ledger.Summarize(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), sum.Net())
	assert.Equal(t, int64(7000), *sum.LastBalanceAfter)
}

func TestLedgerRepo_RollbackOnlyRemovesOwnEntries(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	ledger := NewLedgerRepo(s)

	a, _ := s.Begin(ctx)
	b, _ := s.Begin(ctx)
	require.NoError(t, ledger.Append(ctx, a, &domain.LedgerEntry{ID: uuid.New(), WalletID: uuid.New(), TransactionRef: "A", EntryType: domain.EntryTypeCredit, Amount: 1}))
	keep := &domain.LedgerEntry{ID: uuid.New(), WalletID: uuid.New(), TransactionRef: "B", EntryType: domain.EntryTypeCredit, Amount: 1}
	require.NoError(t, ledger.Append(ctx, b, keep))
	require.NoError(t, a.Rollback(ctx))
	require.NoError(t, b.Commit(ctx))

	entries, _ := ledger.ListByReference(ctx, "B")
	assert.Len(t, entries, 1)
	gone, _ := ledger.ListByReference(ctx, "A")
	assert.Empty(t, gone)
}

func TestLimitRepo_SeedAndUsage(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	limits := NewLimitRepo(s)
	userID := uuid.New()
	day := domain.LimitDay(time.Now())
	defaults := ports.LimitDefaults{DailyLimit: 5000, SingleTransactionLimit: 4000, MaxDailyTransactions: 2}

	tx, _ := s.Begin(ctx)
	l, err := limits.GetForUpdate(ctx, tx, userID, day, defaults)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), l.DailyLimit)
	require.NoError(t, limits.AddUsage(ctx, tx, userID, day, 3000))
	assert.Error(t, limits.AddUsage(ctx, tx, userID, day, 3000))
	require.NoError(t, tx.Commit(ctx))

	got, err := limits.Get(ctx, userID, day)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), got.DailySpent)
	assert.Equal(t, 1, got.DailyTransactionCount)

	none, _ := limits.Get(ctx, userID, day.AddDate(0, 0, 1))
	assert.Nil(t, none)
}

func TestWalletRepo_ListByUser_PrimaryFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Second)
	wallets := NewWalletRepo(s)
	userID := uuid.New()
	base := time.Now()

	require.NoError(t, wallets.Create(ctx, &domain.Wallet{ID: uuid.New(), UserID: userID, Kind: domain.WalletKindSavings, CreatedAt: base}))
	require.NoError(t, wallets.Create(ctx, &domain.Wallet{ID: uuid.New(), UserID: userID, Kind: domain.WalletKindPrimary, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, wallets.Create(ctx, &domain.Wallet{ID: uuid.New(), UserID: uuid.New(), Kind: domain.WalletKindPrimary, CreatedAt: base}))

	list, err := wallets.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.WalletKindPrimary, list[0].Kind)
}

func TestStore_ConcurrentLockedIncrements(t *testing.T) {
	ctx := context.Background()
	s := NewStore(5 * time.Second)
	wallets := NewWalletRepo(s)
	w := seedWallet(t, s, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := s.Begin(ctx)
			if err != nil {
				return
			}
			defer tx.Rollback(ctx)
			cur, err := wallets.GetByIDForUpdate(ctx, tx, w.ID)
			if err != nil {
				return
			}
			if err := wallets.UpdateBalance(ctx, tx, w.ID, cur.Balance+10, ""); err != nil {
				return
			}
			_ = tx.Commit(ctx)
		}()
	}
	wg.Wait()

	got, _ := wallets.GetByID(ctx, w.ID)
	assert.Equal(t, int64(500), got.Balance)
}
