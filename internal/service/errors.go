package service

import (
	"errors"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/apperror"
)

// translateError maps domain and storage sentinels onto application errors.
// AppErrors pass through unchanged; anything unknown becomes SYS_001.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrLockTimeout):
		return apperror.ErrLockTimeout(err)
	case errors.Is(err, domain.ErrWalletInactive):
		return apperror.ErrWalletInactive()
	case errors.Is(err, domain.ErrWalletLocked):
		return apperror.ErrWalletLocked()
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrBalanceOverflow):
		return apperror.ErrInvalidAmount()
	case errors.Is(err, domain.ErrPinNotSet):
		return apperror.ErrPinNotSet()
	case errors.Is(err, domain.ErrDuplicateIdempotency):
		return apperror.ErrDuplicateIdempotencyKey()
	case errors.Is(err, domain.ErrReferenceCollision):
		return apperror.ErrReferenceCollision(err)
	case errors.Is(err, domain.ErrInvalidTransition):
		return apperror.ErrInvalidTransition()
	}
	return apperror.InternalError(err)
}

// errorCode returns the AppError code carried by err, or "" if there is none.
func errorCode(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// isBusinessFailure reports whether err is a financial or authorization rule
// failure. Those mark the transaction failed; transient and internal errors do not.
func isBusinessFailure(err error) bool {
	switch errorCode(err) {
	case apperror.CodeWalletInactive, apperror.CodeWalletLocked,
		apperror.CodeInsufficientBalance,
		apperror.CodePinIncorrect, apperror.CodePinLocked, apperror.CodePinNotSet, apperror.CodePinRequired,
		apperror.CodeExceedsSingleLimit, apperror.CodeExceedsDailyLimit, apperror.CodeTooManyDailyTransactions,
		apperror.CodeChecksumMismatch:
		return true
	}
	return false
}
