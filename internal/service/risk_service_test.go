package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestRiskService_Record(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		score     int
		wantScore int
		wantRef   bool
	}{
		{"with reference", "WTX-1", 40, 40, true},
		{"without reference", "", 50, 50, false},
		{"score clamped high", "WTX-2", 250, 100, true},
		{"score clamped low", "WTX-3", -5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockRiskRepository(ctrl)
			svc := NewRiskService(repo, newTestLogger())

			userID := uuid.New()
			done := make(chan *domain.SuspiciousActivity, 1)
			repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
				func(ctx context.Context, a *domain.SuspiciousActivity) error {
					done <- a
					return nil
				},
			)

			svc.Record(context.Background(), &userID, tt.reference, domain.ActivityLargeTransaction, tt.score, map[string]any{"amount": 1})

			select {
			case a := <-done:
				assert.Equal(t, domain.ActivityLargeTransaction, a.ActivityType)
				assert.Equal(t, tt.wantScore, a.RiskScore)
				assert.Equal(t, &userID, a.UserID)
				assert.False(t, a.IsResolved)
				if tt.wantRef {
					if assert.NotNil(t, a.TransactionRef) {
						assert.Equal(t, tt.reference, *a.TransactionRef)
					}
				} else {
					assert.Nil(t, a.TransactionRef)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("activity not persisted in time")
			}
		})
	}
}

func TestRiskService_Record_RepoErrorIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRiskRepository(ctrl)
	svc := NewRiskService(repo, newTestLogger())

	done := make(chan struct{})
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, a *domain.SuspiciousActivity) error {
			close(done)
			return errors.New("insert failed")
		},
	)

	svc.Record(context.Background(), nil, "", domain.ActivityPinLockout, 50, nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("risk repo not called")
	}
}
