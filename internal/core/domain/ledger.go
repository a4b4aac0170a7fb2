package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryType is the direction of a ledger entry relative to its wallet.
type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// Valid reports whether t is a known direction.
func (t EntryType) Valid() bool {
	return t == EntryTypeDebit || t == EntryTypeCredit
}

// LedgerEntry is an immutable record of one balance change. Entries are append-only.
type LedgerEntry struct {
	ID             uuid.UUID `json:"id"`
	WalletID       uuid.UUID `json:"wallet_id"`
	TransactionRef string    `json:"transaction_ref"`
	EntryType      EntryType `json:"entry_type"`
	Amount         int64     `json:"amount"`
	BalanceBefore  int64     `json:"balance_before"`
	BalanceAfter   int64     `json:"balance_after"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Consistent reports whether balance_after = balance_before ± amount for the entry type.
func (e *LedgerEntry) Consistent() bool {
	if e.Amount <= 0 {
		return false
	}
	switch e.EntryType {
	case EntryTypeDebit:
		return e.BalanceAfter == e.BalanceBefore-e.Amount
	case EntryTypeCredit:
		return e.BalanceAfter == e.BalanceBefore+e.Amount
	}
	return false
}

// SignedAmount returns the entry amount with the sign of its effect on the balance.
func (e *LedgerEntry) SignedAmount() int64 {
	if e.EntryType == EntryTypeDebit {
		return -e.Amount
	}
	return e.Amount
}

// LedgerOperation is a single credit or debit request against one wallet.
type LedgerOperation struct {
	WalletID       uuid.UUID
	Direction      EntryType
	Amount         int64
	TransactionRef string
	Description    string
}

// BalanceChange is the before/after pair reported by the ledger engine.
type BalanceChange struct {
	WalletID      uuid.UUID    `json:"wallet_id"`
	BalanceBefore int64        `json:"balance_before"`
	BalanceAfter  int64        `json:"balance_after"`
	Entry         *LedgerEntry `json:"entry"`
}
