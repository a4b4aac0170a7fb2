package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// WalletKind distinguishes a user's primary wallet from named savings wallets.
type WalletKind string

const (
	WalletKindPrimary WalletKind = "primary"
	WalletKindSavings WalletKind = "savings"
)

// Wallet is the balance store row for a single user wallet.
// Balance is held in integer minor units and is only mutated through the ledger engine.
type Wallet struct {
	ID                     uuid.UUID  `json:"id"`
	UserID                 uuid.UUID  `json:"user_id"`
	Name                   string     `json:"name"`
	Kind                   WalletKind `json:"kind"`
	Currency               string     `json:"currency"`
	Balance                int64      `json:"balance"`
	BalanceChecksum        string     `json:"-"`
	PinHash                *string    `json:"-"`
	FailedPinAttempts      int        `json:"failed_pin_attempts"`
	MaxPinAttempts         int        `json:"max_pin_attempts"`
	LockoutDurationMinutes int        `json:"lockout_duration_minutes"`
	PinLockedUntil         *time.Time `json:"pin_locked_until,omitempty"`
	LastFailedAttemptAt    *time.Time `json:"last_failed_attempt_at,omitempty"`
	IsActive               bool       `json:"is_active"`
	IsLocked               bool       `json:"is_locked"`
	LockedAt               *time.Time `json:"locked_at,omitempty"`
	LockedBy               *string    `json:"locked_by,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// HasPin reports whether a PIN hash has been stored for the wallet.
func (w *Wallet) HasPin() bool {
	return w.PinHash != nil && *w.PinHash != ""
}

// CanTransact returns the first status rule that forbids mutating the balance.
func (w *Wallet) CanTransact() error {
	if !w.IsActive {
		return ErrWalletInactive
	}
	if w.IsLocked {
		return ErrWalletLocked
	}
	return nil
}

// Apply computes the balance after moving amount in the given direction.
// The wallet itself is not modified.
func (w *Wallet) Apply(direction EntryType, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := w.CanTransact(); err != nil {
		return 0, err
	}

	switch direction {
	case EntryTypeDebit:
		if amount > w.Balance {
			return 0, ErrInsufficientBalance
		}
		return w.Balance - amount, nil
	case EntryTypeCredit:
		if w.Balance > math.MaxInt64-amount {
			return 0, ErrBalanceOverflow
		}
		return w.Balance + amount, nil
	default:
		return 0, ErrInvalidDirection
	}
}
