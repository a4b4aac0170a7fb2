package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeWalletToWallet TransactionType = "wallet_to_wallet"
	TransactionTypeFundWallet     TransactionType = "fund_wallet"
	TransactionTypePurchase       TransactionType = "purchase"
	TransactionTypeTopUp          TransactionType = "top_up"
	TransactionTypeWithdrawal     TransactionType = "withdrawal"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeWalletToWallet, TransactionTypeFundWallet, TransactionTypePurchase,
		TransactionTypeTopUp, TransactionTypeWithdrawal:
		return true
	}
	return false
}

// NeedsSender reports whether the type debits an internal wallet.
func (t TransactionType) NeedsSender() bool {
	switch t {
	case TransactionTypeWalletToWallet, TransactionTypePurchase, TransactionTypeWithdrawal:
		return true
	}
	return false
}

// NeedsReceiver reports whether the type credits an internal wallet.
func (t TransactionType) NeedsReceiver() bool {
	switch t {
	case TransactionTypeWalletToWallet, TransactionTypePurchase, TransactionTypeFundWallet, TransactionTypeTopUp:
		return true
	}
	return false
}

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusSuccessful TransactionStatus = "successful"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// Transaction is a money movement between an optional sender and an optional
// receiver wallet. A nil side is the external/system account.
type Transaction struct {
	ID                   uuid.UUID         `json:"id"`
	Reference            string            `json:"reference"`
	IdempotencyKey       *string           `json:"idempotency_key,omitempty"`
	IdempotencyExpiresAt *time.Time        `json:"idempotency_expires_at,omitempty"`
	SenderWalletID       *uuid.UUID        `json:"sender_wallet_id,omitempty"`
	ReceiverWalletID     *uuid.UUID        `json:"receiver_wallet_id,omitempty"`
	Type                 TransactionType   `json:"type"`
	Amount               int64             `json:"amount"`
	Currency             string            `json:"currency"`
	Status               TransactionStatus `json:"status"`
	Description          string            `json:"description,omitempty"`
	FailureReason        *string           `json:"failure_reason,omitempty"`
	InitiatedAt          *time.Time        `json:"initiated_at,omitempty"`
	ProcessedAt          *time.Time        `json:"processed_at,omitempty"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
	FailedAt             *time.Time        `json:"failed_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccessful || t.Status == TransactionStatusFailed
}

// IdempotencyExpired reports whether the transaction's idempotency key can be reused at now.
func (t *Transaction) IdempotencyExpired(now time.Time) bool {
	return t.IdempotencyExpiresAt != nil && !now.Before(*t.IdempotencyExpiresAt)
}

// MarkSuccessful moves a pending transaction to successful.
func (t *Transaction) MarkSuccessful(now time.Time) error {
	if t.Status != TransactionStatusPending {
		return ErrInvalidTransition
	}
	t.Status = TransactionStatusSuccessful
	t.ProcessedAt = &now
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// MarkFailed moves a pending transaction to failed with a reason.
func (t *Transaction) MarkFailed(reason string, now time.Time) error {
	if t.Status != TransactionStatusPending {
		return ErrInvalidTransition
	}
	t.Status = TransactionStatusFailed
	t.FailureReason = &reason
	t.FailedAt = &now
	t.UpdatedAt = now
	return nil
}
