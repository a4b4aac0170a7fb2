package domain

import (
	"time"
)

// PIN policy defaults applied to newly created wallets.
const (
	DefaultMaxPinAttempts    = 3
	DefaultLockoutMinutes    = 30
	DefaultMaxLockoutMinutes = 24 * 60
	PinMinLength             = 4
	PinMaxLength             = 6
)

// PinOutcome is the result of a single PIN verification attempt.
type PinOutcome string

const (
	PinOutcomeAccepted PinOutcome = "accepted"
	PinOutcomeRejected PinOutcome = "rejected"
	PinOutcomeLocked   PinOutcome = "locked"
)

// PinAttempt describes what happened to a wallet's PIN state after an attempt.
type PinAttempt struct {
	Outcome           PinOutcome
	FailedAttempts    int
	RemainingAttempts int
	LockedUntil       *time.Time
	// LockoutTriggered is true only for the attempt that moved the wallet into lockout.
	LockoutTriggered bool
}

// RemainingLockout returns how long the PIN stays locked, rounded up to whole minutes.
func (a PinAttempt) RemainingLockout(now time.Time) int {
	if a.LockedUntil == nil || !now.Before(*a.LockedUntil) {
		return 0
	}
	d := a.LockedUntil.Sub(now)
	mins := int(d / time.Minute)
	if d%time.Minute != 0 {
		mins++
	}
	return mins
}

// PinLocked reports whether the time-based PIN lockout is still in effect.
func (w *Wallet) PinLocked(now time.Time) bool {
	return w.PinLockedUntil != nil && now.Before(*w.PinLockedUntil)
}

// LockoutDuration returns base * 2^(failed-max) minutes, capped at capMinutes.
// failed is the attempt count after the failure that triggered the lockout.
func LockoutDuration(failed, maxAttempts, baseMinutes, capMinutes int) time.Duration {
	if capMinutes <= 0 {
		capMinutes = DefaultMaxLockoutMinutes
	}
	exp := failed - maxAttempts
	if exp < 0 {
		exp = 0
	}
	mins := baseMinutes
	for i := 0; i < exp && mins < capMinutes; i++ {
		mins *= 2
	}
	if mins > capMinutes {
		mins = capMinutes
	}
	return time.Duration(mins) * time.Minute
}

// RegisterPinAttempt advances the PIN state machine for one attempt and
// mutates the wallet's counters accordingly.
//
// While a lockout is active every attempt is rejected as locked and the
// state is left untouched. A correct PIN otherwise resets the counter and
// clears the lock. A wrong PIN increments the counter; once it reaches the
// wallet's maximum, a new lock expiry is computed from the running count, so
// repeated lockout cycles compound until a correct PIN is entered.
func (w *Wallet) RegisterPinAttempt(correct bool, now time.Time, capMinutes int) PinAttempt {
	maxAttempts := w.MaxPinAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPinAttempts
	}

	if w.PinLocked(now) {
		return PinAttempt{
			Outcome:        PinOutcomeLocked,
			FailedAttempts: w.FailedPinAttempts,
			LockedUntil:    w.PinLockedUntil,
		}
	}

	if correct {
		w.FailedPinAttempts = 0
		w.PinLockedUntil = nil
		return PinAttempt{
			Outcome:           PinOutcomeAccepted,
			RemainingAttempts: maxAttempts,
		}
	}

	w.FailedPinAttempts++
	ts := now
	w.LastFailedAttemptAt = &ts

	res := PinAttempt{
		Outcome:        PinOutcomeRejected,
		FailedAttempts: w.FailedPinAttempts,
	}
	if w.FailedPinAttempts >= maxAttempts {
		base := w.LockoutDurationMinutes
		if base <= 0 {
			base = DefaultLockoutMinutes
		}
		until := now.Add(LockoutDuration(w.FailedPinAttempts, maxAttempts, base, capMinutes))
		w.PinLockedUntil = &until
		res.LockedUntil = &until
		res.LockoutTriggered = true
		return res
	}
	res.RemainingAttempts = maxAttempts - w.FailedPinAttempts
	return res
}

// ValidPinFormat reports whether pin is 4 to 6 ASCII digits.
func ValidPinFormat(pin string) bool {
	if len(pin) < PinMinLength || len(pin) > PinMaxLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
