package domain

import (
	"time"

	"github.com/google/uuid"
)

// LimitViolation names the ceiling a debit would break.
type LimitViolation string

const (
	LimitOK                       LimitViolation = ""
	LimitExceedsSingle            LimitViolation = "exceeds_single_limit"
	LimitExceedsDaily             LimitViolation = "exceeds_daily_limit"
	LimitTooManyDailyTransactions LimitViolation = "too_many_daily_transactions"
)

// TransactionLimit holds one user's spend ceilings and usage for one calendar day.
// Rows for past dates are never mutated.
type TransactionLimit struct {
	ID                     uuid.UUID `json:"id"`
	UserID                 uuid.UUID `json:"user_id"`
	LimitDate              time.Time `json:"limit_date"`
	DailyLimit             int64     `json:"daily_limit"`
	DailySpent             int64     `json:"daily_spent"`
	SingleTransactionLimit int64     `json:"single_transaction_limit"`
	DailyTransactionCount  int       `json:"daily_transaction_count"`
	MaxDailyTransactions   int       `json:"max_daily_transactions"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Check evaluates a prospective debit of amount against the ceilings.
func (l *TransactionLimit) Check(amount int64) LimitViolation {
	if l.SingleTransactionLimit > 0 && amount > l.SingleTransactionLimit {
		return LimitExceedsSingle
	}
	if l.DailySpent+amount > l.DailyLimit {
		return LimitExceedsDaily
	}
	if l.DailyTransactionCount+1 > l.MaxDailyTransactions {
		return LimitTooManyDailyTransactions
	}
	return LimitOK
}

// RemainingDaily returns how much may still be spent today.
func (l *TransactionLimit) RemainingDaily() int64 {
	if rem := l.DailyLimit - l.DailySpent; rem > 0 {
		return rem
	}
	return 0
}

// LimitDay truncates t to the UTC calendar day used as the limit row key.
func LimitDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
