package postgres

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestWallet(userID uuid.UUID) *domain.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Wallet{
		ID:                     uuid.New(),
		UserID:                 userID,
		Name:                   "Main",
		Kind:                   domain.WalletKindPrimary,
		Currency:               "USD",
		Balance:                10000,
		BalanceChecksum:        "c0ffee",
		PinHash:                strPtr("$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"),
		MaxPinAttempts:         3,
		LockoutDurationMinutes: 30,
		IsActive:               true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

func walletColumnNames() []string {
	return []string{"id", "user_id", "name", "kind", "currency", "balance", "balance_checksum", "pin_hash",
		"failed_pin_attempts", "max_pin_attempts", "lockout_duration_minutes", "pin_locked_until", "last_failed_attempt_at",
		"is_active", "is_locked", "locked_at", "locked_by", "created_at", "updated_at"}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletColumnNames()).AddRow(
		w.ID, w.UserID, w.Name, w.Kind, w.Currency, w.Balance, w.BalanceChecksum, w.PinHash,
		w.FailedPinAttempts, w.MaxPinAttempts, w.LockoutDurationMinutes, w.PinLockedUntil, w.LastFailedAttemptAt,
		w.IsActive, w.IsLocked, w.LockedAt, w.LockedBy, w.CreatedAt, w.UpdatedAt,
	)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.UserID, w.Name, w.Kind, w.Currency, w.Balance, w.BalanceChecksum, w.PinHash,
			w.FailedPinAttempts, w.MaxPinAttempts, w.LockoutDurationMinutes, w.PinLockedUntil, w.LastFailedAttemptAt,
			w.IsActive, w.IsLocked, w.LockedAt, w.LockedBy, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	result, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.Equal(t, int64(10000), result.Balance)
	assert.Equal(t, w.BalanceChecksum, result.BalanceChecksum)
	assert.True(t, result.HasPin())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(walletColumnNames()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	userID := uuid.New()
	primary := newTestWallet(userID)
	savings := newTestWallet(userID)
	savings.Kind = domain.WalletKindSavings

	rows := walletRow(primary)
	rows.AddRow(
		savings.ID, savings.UserID, savings.Name, savings.Kind, savings.Currency, savings.Balance, savings.BalanceChecksum, savings.PinHash,
		savings.FailedPinAttempts, savings.MaxPinAttempts, savings.LockoutDurationMinutes, savings.PinLockedUntil, savings.LastFailedAttemptAt,
		savings.IsActive, savings.IsLocked, savings.LockedAt, savings.LockedBy, savings.CreatedAt, savings.UpdatedAt,
	)
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE user_id").
		WithArgs(userID).
		WillReturnRows(rows)

	wallets, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, domain.WalletKindPrimary, wallets[0].Kind)
	assert.Equal(t, domain.WalletKindSavings, wallets[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id .+ FOR UPDATE").
		WithArgs(w.ID).
		WillReturnRows(walletRow(w))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, w.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByIDForUpdate_LockTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE id .+ FOR UPDATE").
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, uuid.New())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(int64(7000), "new-checksum", walletID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, walletID, 7000, "new-checksum")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateBalance_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateBalance(context.Background(), tx, uuid.New(), 1, "x")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "wallet not found")
}

func TestWalletRepo_UpdatePinState(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())
	until := time.Now().Add(30 * time.Minute)
	w.FailedPinAttempts = 3
	w.PinLockedUntil = &until
	w.LastFailedAttemptAt = &w.UpdatedAt

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET pin_hash").
		WithArgs(w.PinHash, 3, w.PinLockedUntil, w.LastFailedAttemptAt, w.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdatePinState(context.Background(), tx, w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())
	w.IsLocked = true
	w.LockedAt = &w.UpdatedAt
	w.LockedBy = strPtr("ops@example.com")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET is_active").
		WithArgs(true, true, w.LockedAt, w.LockedBy, w.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdateStatus(context.Background(), tx, w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_UpdateChecksum(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	walletID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance_checksum").
		WithArgs("resealed", walletID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdateChecksum(context.Background(), tx, walletID, "resealed"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
