package apperror

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string         `json:"error_code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"` // Safe to show to the end user
	Err        error          `json:"-"`                 // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a user-renderable detail and returns the same error.
func (e *AppError) WithDetails(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Retryable reports whether the caller may retry the request with backoff.
func (e *AppError) Retryable() bool {
	return e.Code == CodeLockTimeout
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes, grouped by family.
const (
	CodeWalletInactive = "WAL_001"
	CodeWalletLocked   = "WAL_002"
	CodeWalletExists   = "WAL_003"

	CodeInsufficientBalance = "LED_001"
	CodeInvalidAmount       = "LED_002"
	CodeNotFound            = "LED_003"
	CodeCurrencyMismatch    = "LED_004"
	CodeInvalidParties      = "LED_005"

	CodePinIncorrect = "PIN_001"
	CodePinLocked    = "PIN_002"
	CodePinNotSet    = "PIN_003"
	CodePinFormat    = "PIN_004"
	CodePinRequired  = "PIN_005"

	CodeExceedsSingleLimit       = "LIM_001"
	CodeExceedsDailyLimit        = "LIM_002"
	CodeTooManyDailyTransactions = "LIM_003"

	CodeChecksumMismatch = "INT_001"

	CodeDuplicateIdempotencyKey = "TXN_001"
	CodeReferenceCollision      = "TXN_002"
	CodeInvalidTransition       = "TXN_003"
	CodeReferenceInUse          = "TXN_004"

	CodeRateLimitExceeded = "RATE_001"

	CodeInternal    = "SYS_001"
	CodeLockTimeout = "SYS_002"
)

// ---- Wallet status (WAL) ----

func ErrWalletInactive() *AppError {
	return New(CodeWalletInactive, "Wallet is inactive", http.StatusUnprocessableEntity)
}

func ErrWalletLocked() *AppError {
	return New(CodeWalletLocked, "Wallet is locked", http.StatusLocked)
}

func ErrPrimaryWalletExists() *AppError {
	return New(CodeWalletExists, "User already has a primary wallet", http.StatusConflict)
}

// ---- Ledger (LED) ----

func ErrInsufficientBalance(balance, amount int64) *AppError {
	return New(CodeInsufficientBalance, "Insufficient balance in wallet", http.StatusPaymentRequired).
		WithDetails("shortfall", amount-balance)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrCurrencyMismatch() *AppError {
	return New(CodeCurrencyMismatch, "Currency does not match wallet currency", http.StatusUnprocessableEntity)
}

func ErrInvalidParties(message string) *AppError {
	return New(CodeInvalidParties, message, http.StatusBadRequest)
}

// ---- PIN (PIN) ----

func ErrPinIncorrect(remainingAttempts int) *AppError {
	return New(CodePinIncorrect, "Incorrect PIN", http.StatusUnauthorized).
		WithDetails("remaining_attempts", remainingAttempts)
}

func ErrPinLocked(lockedUntil time.Time, remainingMinutes int) *AppError {
	return New(CodePinLocked, fmt.Sprintf("PIN is locked, try again in %d minute(s)", remainingMinutes), http.StatusLocked).
		WithDetails("locked_until", lockedUntil.UTC().Format(time.RFC3339)).
		WithDetails("remaining_minutes", remainingMinutes)
}

func ErrPinNotSet() *AppError {
	return New(CodePinNotSet, "PIN has not been set for this wallet", http.StatusUnprocessableEntity)
}

func ErrPinFormat() *AppError {
	return New(CodePinFormat, "PIN must be 4 to 6 digits", http.StatusBadRequest)
}

func ErrPinRequired() *AppError {
	return New(CodePinRequired, "PIN is required for this transaction", http.StatusUnauthorized)
}

// ---- Limits (LIM) ----

func ErrExceedsSingleLimit(limit int64) *AppError {
	return New(CodeExceedsSingleLimit, "Amount exceeds single transaction limit", http.StatusUnprocessableEntity).
		WithDetails("single_transaction_limit", limit)
}

func ErrExceedsDailyLimit(remaining int64) *AppError {
	return New(CodeExceedsDailyLimit, "Amount exceeds remaining daily limit", http.StatusUnprocessableEntity).
		WithDetails("remaining_daily_limit", remaining)
}

func ErrTooManyDailyTransactions(max int) *AppError {
	return New(CodeTooManyDailyTransactions, "Daily transaction count exceeded", http.StatusUnprocessableEntity).
		WithDetails("max_daily_transactions", max)
}

// ---- Integrity (INT) ----

func ErrChecksumMismatch() *AppError {
	return New(CodeChecksumMismatch, "Wallet balance failed integrity verification", http.StatusConflict)
}

// ---- Transactions (TXN) ----

func ErrDuplicateIdempotencyKey() *AppError {
	return New(CodeDuplicateIdempotencyKey, "Idempotency key is in use by another request", http.StatusConflict)
}

func ErrReferenceCollision(err error) *AppError {
	return Wrap(CodeReferenceCollision, "Could not allocate a unique transaction reference", http.StatusInternalServerError, err)
}

func ErrInvalidTransition() *AppError {
	return New(CodeInvalidTransition, "Transaction is already in a terminal state", http.StatusConflict)
}

func ErrReferenceInUse() *AppError {
	return New(CodeReferenceInUse, "Reference is already in use", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrLockTimeout(err error) *AppError {
	return Wrap(CodeLockTimeout, "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LED_002-style validation error.
func Validation(message string) *AppError {
	return New(CodeInvalidAmount, message, http.StatusBadRequest)
}
