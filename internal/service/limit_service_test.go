package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testLimitDefaults = ports.LimitDefaults{
	DailyLimit:             100000,
	SingleTransactionLimit: 50000,
	MaxDailyTransactions:   10,
}

func TestLimitService_CheckAndReserve(t *testing.T) {
	tests := []struct {
		name     string
		spent    int64
		count    int
		amount   int64
		wantCode string
	}{
		{"within limits", 0, 0, 20000, ""},
		{"single limit", 0, 0, 50001, apperror.CodeExceedsSingleLimit},
		{"daily limit", 90000, 3, 20000, apperror.CodeExceedsDailyLimit},
		{"count limit", 1000, 10, 100, apperror.CodeTooManyDailyTransactions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockLimitRepository(ctrl)
			svc := NewLimitService(repo, testLimitDefaults, newTestLogger())

			ctx := context.Background()
			tx := &mockTx{}
			userID := uuid.New()
			now := time.Date(2026, 2, 1, 23, 59, 0, 0, time.UTC)

			repo.EXPECT().GetForUpdate(ctx, tx, userID, domain.LimitDay(now), testLimitDefaults).Return(&domain.TransactionLimit{
				UserID:                 userID,
				DailyLimit:             testLimitDefaults.DailyLimit,
				DailySpent:             tt.spent,
				SingleTransactionLimit: testLimitDefaults.SingleTransactionLimit,
				DailyTransactionCount:  tt.count,
				MaxDailyTransactions:   testLimitDefaults.MaxDailyTransactions,
			}, nil)

			l, err := svc.CheckAndReserve(ctx, tx, userID, tt.amount, now)
			require.NotNil(t, l)
			assert.Equal(t, tt.wantCode, errorCode(err))
		})
	}
}

func TestLimitService_DailyLimitReportsRemaining(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLimitRepository(ctrl)
	svc := NewLimitService(repo, testLimitDefaults, newTestLogger())

	repo.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.TransactionLimit{
		DailyLimit: 100000, DailySpent: 95000, SingleTransactionLimit: 50000, MaxDailyTransactions: 10,
	}, nil)

	_, err := svc.CheckAndReserve(context.Background(), &mockTx{}, uuid.New(), 10000, time.Now())
	appErr := err.(*apperror.AppError)
	assert.Equal(t, int64(5000), appErr.Details["remaining_daily_limit"])
}

func TestLimitService_Commit(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLimitRepository(ctrl)
	svc := NewLimitService(repo, testLimitDefaults, newTestLogger())

	ctx := context.Background()
	tx := &mockTx{}
	userID := uuid.New()
	now := time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC)

	repo.EXPECT().AddUsage(ctx, tx, userID, domain.LimitDay(now), int64(3000)).Return(nil)
	require.NoError(t, svc.Commit(ctx, tx, userID, 3000, now))

	repo.EXPECT().AddUsage(ctx, tx, userID, domain.LimitDay(now), int64(1)).Return(domain.ErrLockTimeout)
	assert.Equal(t, apperror.CodeLockTimeout, errorCode(svc.Commit(ctx, tx, userID, 1, now)))
}

func TestLimitService_Status(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLimitRepository(ctrl)
	svc := NewLimitService(repo, testLimitDefaults, newTestLogger())

	ctx := context.Background()
	userID := uuid.New()
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().Get(ctx, userID, day).Return(nil, nil)
	l, err := svc.Status(ctx, userID, day.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(100000), l.DailyLimit)
	assert.Zero(t, l.DailySpent)
	assert.Equal(t, day, l.LimitDate)

	repo.EXPECT().Get(ctx, userID, day).Return(&domain.TransactionLimit{DailyLimit: 7, DailySpent: 3}, nil)
	l, err = svc.Status(ctx, userID, day)
	require.NoError(t, err)
	assert.Equal(t, int64(4), l.RemainingDaily())

	repo.EXPECT().Get(ctx, userID, day).Return(nil, errors.New("boom"))
	_, err = svc.Status(ctx, userID, day)
	assert.Equal(t, apperror.CodeInternal, errorCode(err))
}
