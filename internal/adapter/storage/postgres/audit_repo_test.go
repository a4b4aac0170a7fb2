package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	userID := uuid.New()
	log := &domain.AuditLog{
		ID:          uuid.New(),
		UserID:      &userID,
		Action:      domain.AuditActionWalletLock,
		OldValues:   map[string]any{"is_locked": false},
		NewValues:   map[string]any{"is_locked": true},
		IPAddress:   "10.0.0.1",
		Description: "fraud review",
		CreatedAt:   time.Now(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(log.ID, log.UserID, "WALLET_LOCK", []byte(`{"is_locked":false}`), []byte(`{"is_locked":true}`),
			log.IPAddress, log.UserAgent, log.Description, log.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), log))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create_EmptyValuesAreNull(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	log := &domain.AuditLog{ID: uuid.New(), Action: domain.AuditActionWalletCreate, CreatedAt: time.Now()}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(log.ID, log.UserID, "WALLET_CREATE", []byte(nil), []byte(nil),
			"", "", "", log.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), log))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRiskRepo(mock)
	a := &domain.SuspiciousActivity{
		ID:           uuid.New(),
		ActivityType: domain.ActivityChecksumMismatch,
		RiskScore:    100,
		Details:      map[string]any{"wallet_id": "w1"},
		CreatedAt:    time.Now(),
	}

	mock.ExpectExec("INSERT INTO suspicious_activities").
		WithArgs(a.ID, a.UserID, a.TransactionRef, a.ActivityType, 100, []byte(`{"wallet_id":"w1"}`), false, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskRepo_Create_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRiskRepo(mock)
	mock.ExpectExec("INSERT INTO suspicious_activities").WillReturnError(errors.New("disk full"))

	err = repo.Create(context.Background(), &domain.SuspiciousActivity{ID: uuid.New(), CreatedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert suspicious activity")
}
