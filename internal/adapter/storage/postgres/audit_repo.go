package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"wallet-ledger/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a PostgreSQL-backed audit repository.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create inserts an audit log entry.
func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	oldValues, err := marshalNullable(log.OldValues)
	if err != nil {
		return fmt.Errorf("marshal old values: %w", err)
	}
	newValues, err := marshalNullable(log.NewValues)
	if err != nil {
		return fmt.Errorf("marshal new values: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, user_id, action, old_values, new_values, ip_address, user_agent, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		log.ID, log.UserID, string(log.Action), oldValues, newValues,
		log.IPAddress, log.UserAgent, log.Description, log.CreatedAt,
	)
	if err != nil {
		return translate("insert audit log", err)
	}
	return nil
}

// marshalNullable returns nil for an empty map so the column stays NULL.
func marshalNullable(v map[string]any) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}
