package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionWalletCreate     AuditAction = "WALLET_CREATE"
	AuditActionWalletLock       AuditAction = "WALLET_LOCK"
	AuditActionWalletUnlock     AuditAction = "WALLET_UNLOCK"
	AuditActionWalletDeactivate AuditAction = "WALLET_DEACTIVATE"
	AuditActionPinSet           AuditAction = "PIN_SET"
	AuditActionChecksumReseal   AuditAction = "CHECKSUM_RESEAL"
)

// AuditLog records a single audited action performed by an explicit actor.
type AuditLog struct {
	ID          uuid.UUID      `json:"id"`
	UserID      *uuid.UUID     `json:"user_id,omitempty"`
	Action      AuditAction    `json:"action"`
	OldValues   map[string]any `json:"old_values,omitempty"`
	NewValues   map[string]any `json:"new_values,omitempty"`
	IPAddress   string         `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
