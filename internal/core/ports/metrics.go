package ports

import (
	"time"

	"wallet-ledger/internal/core/domain"
)

// MetricsRecorder receives ledger telemetry. Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	RecordLedgerOp(direction domain.EntryType, outcome string)
	RecordTransfer(txType domain.TransactionType, status string, duration time.Duration)
	RecordPinAttempt(outcome domain.PinOutcome)
	RecordChecksumFailure()
	RecordIdempotentReplay(source string)
	RecordCircuitState(name string, state string)
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) RecordLedgerOp(domain.EntryType, string)                      {}
func (NoopMetrics) RecordTransfer(domain.TransactionType, string, time.Duration) {}
func (NoopMetrics) RecordPinAttempt(domain.PinOutcome)                           {}
func (NoopMetrics) RecordChecksumFailure()                                       {}
func (NoopMetrics) RecordIdempotentReplay(string)                                {}
func (NoopMetrics) RecordCircuitState(string, string)                            {}
