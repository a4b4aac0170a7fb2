package service

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RiskServiceImpl implements ports.RiskRecorder. Records are persisted off
// the request path; a failed write is logged and dropped.
type RiskServiceImpl struct {
	repo ports.RiskRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewRiskService creates a new risk collaborator.
func NewRiskService(repo ports.RiskRepository, log zerolog.Logger) *RiskServiceImpl {
	return &RiskServiceImpl{
		repo: repo,
		log:  logger.Component(log, "risk"),
		now:  time.Now,
	}
}

// Record stores a suspicious activity. It never blocks on storage and never fails the caller.
func (s *RiskServiceImpl) Record(ctx context.Context, userID *uuid.UUID, reference string, activityType string, riskScore int, details map[string]any) {
	activity := &domain.SuspiciousActivity{
		ID:           uuid.New(),
		UserID:       userID,
		ActivityType: activityType,
		RiskScore:    domain.ClampRiskScore(riskScore),
		Details:      details,
		CreatedAt:    s.now().UTC(),
	}
	if reference != "" {
		ref := reference
		activity.TransactionRef = &ref
	}

	s.log.Warn().
		Str("activity_type", activityType).
		Str("reference", reference).
		Int("risk_score", activity.RiskScore).
		Msg("suspicious activity")

	go func() {
		if err := s.repo.Create(context.Background(), activity); err != nil {
			s.log.Error().Err(err).Str("activity_type", activityType).Msg("failed to persist suspicious activity")
		}
	}()
}
