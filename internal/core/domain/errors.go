package domain

import "errors"

// Sentinel errors returned by the domain rules and the storage adapters.
// Services translate them into apperror values.
var (
	ErrWalletInactive       = errors.New("wallet is inactive")
	ErrWalletLocked         = errors.New("wallet is locked")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrBalanceOverflow      = errors.New("balance overflow")
	ErrInvalidDirection     = errors.New("invalid entry direction")
	ErrPinNotSet            = errors.New("pin not set")
	ErrInvalidTransition    = errors.New("invalid transaction status transition")
	ErrLockTimeout          = errors.New("lock wait timeout")
	ErrReferenceCollision   = errors.New("transaction reference already exists")
	ErrDuplicateIdempotency = errors.New("idempotency key already reserved")
	ErrDuplicateEntry       = errors.New("ledger entry already exists")
)
