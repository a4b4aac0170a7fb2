package metrics

import (
	"strconv"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
)

// Circuit breaker states as exported on the circuit_state gauge.
const (
	circuitClosed   = 0
	circuitOpen     = 1
	circuitHalfOpen = 2
)

// PrometheusCollector implements ports.MetricsRecorder for Prometheus.
type PrometheusCollector struct {
	namespace string

	// Ledger engine
	ledgerOps        *prometheus.CounterVec
	transfers        *prometheus.CounterVec
	transferLatency  *prometheus.HistogramVec
	pinAttempts      *prometheus.CounterVec
	checksumFailures prometheus.Counter
	replays          *prometheus.CounterVec

	// Circuit breaker
	circuitOpens *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	// HTTP
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		namespace: namespace,
		ledgerOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Ledger credits and debits by direction and outcome",
			},
			[]string{"direction", "outcome"},
		),
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Transfers by type and final status",
			},
			[]string{"type", "status"},
		),
		transferLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Transfer latency from validation to result",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"type"},
		),
		pinAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pin_attempts_total",
				Help:      "PIN verification attempts by outcome",
			},
			[]string{"outcome"},
		),
		checksumFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checksum_failures_total",
				Help:      "Wallets found with a balance that fails integrity verification",
			},
		),
		replays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "idempotent_replays_total",
				Help:      "Requests answered from a previous result, by source",
			},
			[]string{"source"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens",
			},
			[]string{"breaker"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"breaker"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Register registers all metrics with the given Prometheus registry.
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.ledgerOps,
		pc.transfers,
		pc.transferLatency,
		pc.pinAttempts,
		pc.checksumFailures,
		pc.replays,
		pc.circuitOpens,
		pc.circuitState,
		pc.httpRequests,
		pc.httpLatency,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

func (pc *PrometheusCollector) RecordLedgerOp(direction domain.EntryType, outcome string) {
	pc.ledgerOps.WithLabelValues(string(direction), outcome).Inc()
}

func (pc *PrometheusCollector) RecordTransfer(txType domain.TransactionType, status string, duration time.Duration) {
	pc.transfers.WithLabelValues(string(txType), status).Inc()
	pc.transferLatency.WithLabelValues(string(txType)).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordPinAttempt(outcome domain.PinOutcome) {
	pc.pinAttempts.WithLabelValues(string(outcome)).Inc()
}

func (pc *PrometheusCollector) RecordChecksumFailure() {
	pc.checksumFailures.Inc()
}

func (pc *PrometheusCollector) RecordIdempotentReplay(source string) {
	pc.replays.WithLabelValues(source).Inc()
}

// RecordCircuitState records a breaker transition. state is the gobreaker
// state name: closed, open or half-open.
func (pc *PrometheusCollector) RecordCircuitState(name string, state string) {
	value := circuitClosed
	switch state {
	case "open":
		value = circuitOpen
		pc.circuitOpens.WithLabelValues(name).Inc()
	case "half-open":
		value = circuitHalfOpen
	}
	pc.circuitState.WithLabelValues(name).Set(float64(value))
}

// RecordHTTPRequest records one served request. route is the matched route
// template, not the raw path.
func (pc *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	pc.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	pc.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}
