package dto

import (
	"time"

	"wallet-ledger/internal/core/domain"
)

// CreateWalletRequest is the request body for opening a wallet.
type CreateWalletRequest struct {
	UserID   string `json:"user_id" binding:"required,uuid"`
	Name     string `json:"name" binding:"max=100"`
	Kind     string `json:"kind" binding:"omitempty,oneof=primary savings"`
	Currency string `json:"currency" binding:"omitempty,iso_currency"`
}

// AmountRequest is the request body for a direct credit or debit.
type AmountRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Reference   string `json:"reference" binding:"omitempty,max=64,safe_id"`
	Description string `json:"description" binding:"max=255"`
}

// LockRequest is the request body for locking a wallet.
type LockRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// ResealRequest is the request body for re-sealing a wallet checksum.
type ResealRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// SetPINRequest is the request body for setting or replacing a wallet PIN.
type SetPINRequest struct {
	Pin string `json:"pin" binding:"required,numeric,min=4,max=6" sanitize:"-"`
}

// VerifyPINRequest is the request body for checking a wallet PIN.
type VerifyPINRequest struct {
	Pin string `json:"pin" binding:"required" sanitize:"-"`
}

// TransferRequest is the request body for a money movement. The
// idempotency key travels in the Idempotency-Key header.
type TransferRequest struct {
	SenderWalletID   *string `json:"sender_wallet_id,omitempty" binding:"omitempty,uuid"`
	ReceiverWalletID *string `json:"receiver_wallet_id,omitempty" binding:"omitempty,uuid"`
	Amount           int64   `json:"amount" binding:"required,gt=0"`
	Currency         string  `json:"currency" binding:"omitempty,iso_currency"`
	Type             string  `json:"type" binding:"required,oneof=wallet_to_wallet fund_wallet purchase top_up withdrawal"`
	Description      string  `json:"description" binding:"max=255"`
	Pin              string  `json:"pin,omitempty" sanitize:"-"`
}

// PageQuery holds pagination query parameters.
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// BalanceChangeResponse is the response body for a direct credit or debit.
type BalanceChangeResponse struct {
	WalletID      string              `json:"wallet_id"`
	BalanceBefore int64               `json:"balance_before"`
	BalanceAfter  int64               `json:"balance_after"`
	Entry         *domain.LedgerEntry `json:"entry"`
}

// EntriesResponse is a page of ledger entries.
type EntriesResponse struct {
	Entries  []domain.LedgerEntry `json:"entries"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// LimitResponse reports a user's spend against today's ceilings.
type LimitResponse struct {
	UserID                 string `json:"user_id"`
	LimitDate              string `json:"limit_date"`
	DailyLimit             int64  `json:"daily_limit"`
	DailySpent             int64  `json:"daily_spent"`
	RemainingDaily         int64  `json:"remaining_daily"`
	SingleTransactionLimit int64  `json:"single_transaction_limit"`
	DailyTransactionCount  int    `json:"daily_transaction_count"`
	MaxDailyTransactions   int    `json:"max_daily_transactions"`
}

// NewBalanceChangeResponse converts a ledger result for the wire.
func NewBalanceChangeResponse(bc *domain.BalanceChange) BalanceChangeResponse {
	return BalanceChangeResponse{
		WalletID:      bc.WalletID.String(),
		BalanceBefore: bc.BalanceBefore,
		BalanceAfter:  bc.BalanceAfter,
		Entry:         bc.Entry,
	}
}

// NewLimitResponse converts a limit row for the wire.
func NewLimitResponse(l *domain.TransactionLimit) LimitResponse {
	return LimitResponse{
		UserID:                 l.UserID.String(),
		LimitDate:              l.LimitDate.Format(time.DateOnly),
		DailyLimit:             l.DailyLimit,
		DailySpent:             l.DailySpent,
		RemainingDaily:         l.RemainingDaily(),
		SingleTransactionLimit: l.SingleTransactionLimit,
		DailyTransactionCount:  l.DailyTransactionCount,
		MaxDailyTransactions:   l.MaxDailyTransactions,
	}
}
