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

// AuditServiceImpl implements ports.AuditLogger.
type AuditServiceImpl struct {
	repo ports.AuditRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewAuditService creates a new audit service.
// If repo is nil, audit entries are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{repo: repo, log: logger.Component(log, "audit"), now: time.Now}
}

// LogAction records an audit entry asynchronously (fire-and-forget). The
// actor is supplied by the caller; nothing is read from request state.
func (s *AuditServiceImpl) LogAction(ctx context.Context, actor ports.Actor, action domain.AuditAction, oldValues, newValues map[string]any, description string) {
	entry := &domain.AuditLog{
		ID:          uuid.New(),
		UserID:      actor.UserID,
		Action:      action,
		OldValues:   oldValues,
		NewValues:   newValues,
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
		Description: description,
		CreatedAt:   s.now().UTC(),
	}

	go func() {
		evt := s.log.Info().Str("action", string(action)).Str("ip", actor.IPAddress)
		if actor.UserID != nil {
			evt = evt.Str("actor_id", actor.UserID.String())
		}
		evt.Msg("audit")

		if s.repo != nil {
			if err := s.repo.Create(context.Background(), entry); err != nil {
				s.log.Warn().Err(err).Str("action", string(action)).Msg("failed to persist audit log")
			}
		}
	}()
}
