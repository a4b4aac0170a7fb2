package domain

import (
	"time"

	"github.com/google/uuid"
)

// Suspicious activity types reported by the engine.
const (
	ActivityChecksumMismatch = "checksum_mismatch"
	ActivityPinLockout       = "pin_lockout"
	ActivityLargeTransaction = "large_transaction"
	ActivityLimitBreach      = "limit_breach"
)

// SuspiciousActivity is a risk record kept for later review.
type SuspiciousActivity struct {
	ID             uuid.UUID      `json:"id"`
	UserID         *uuid.UUID     `json:"user_id,omitempty"`
	TransactionRef *string        `json:"transaction_ref,omitempty"`
	ActivityType   string         `json:"activity_type"`
	RiskScore      int            `json:"risk_score"` // 0-100
	Details        map[string]any `json:"details,omitempty"`
	IsResolved     bool           `json:"is_resolved"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ClampRiskScore bounds score to 0..100.
func ClampRiskScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}
