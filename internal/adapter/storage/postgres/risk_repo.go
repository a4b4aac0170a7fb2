package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"wallet-ledger/internal/core/domain"
)

// RiskRepo implements ports.RiskRepository.
type RiskRepo struct {
	pool Pool
}

// NewRiskRepo creates a new RiskRepo.
func NewRiskRepo(pool Pool) *RiskRepo {
	return &RiskRepo{pool: pool}
}

// Create inserts a suspicious activity record.
func (r *RiskRepo) Create(ctx context.Context, a *domain.SuspiciousActivity) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("marshal risk details: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO suspicious_activities (id, user_id, transaction_ref, activity_type, risk_score, details, is_resolved, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.UserID, a.TransactionRef, a.ActivityType, a.RiskScore, details, a.IsResolved, a.CreatedAt,
	)
	if err != nil {
		return translate("insert suspicious activity", err)
	}
	return nil
}
