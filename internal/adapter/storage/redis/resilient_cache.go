package redis

import (
	"context"
	"errors"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls to the cache.
var ErrCircuitOpen = errors.New("idempotency cache circuit open")

// ResilientIdempotencyCache guards an IdempotencyCache with a per-call timeout
// and a circuit breaker, so a sick Redis degrades to the database path.
type ResilientIdempotencyCache struct {
	inner   ports.IdempotencyCache
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	log     zerolog.Logger
}

// NewResilientIdempotencyCache wraps inner with the breaker settings in cfg.
func NewResilientIdempotencyCache(inner ports.IdempotencyCache, cfg config.CircuitBreakerConfig, metrics ports.MetricsRecorder, log zerolog.Logger) *ResilientIdempotencyCache {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	rc := &ResilientIdempotencyCache{
		inner:   inner,
		timeout: cfg.OperationTimeout,
		log:     logger.Component(log, "idempotency_cache"),
	}

	rc.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "idempotency_cache",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			rc.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.RecordCircuitState(name, to.String())
		},
	})

	return rc
}

// Get reads through the breaker. A miss is not a failure.
func (c *ResilientIdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.inner.Get(ctx, key)
	})
	if err != nil {
		return nil, c.convert("get", err)
	}
	val, _ := out.([]byte)
	return val, nil
}

// Set writes through the breaker.
func (c *ResilientIdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.inner.Set(ctx, key, value, ttl)
	})
	if err != nil {
		return c.convert("set", err)
	}
	return nil
}

// State reports the breaker state.
func (c *ResilientIdempotencyCache) State() gobreaker.State {
	return c.cb.State()
}

func (c *ResilientIdempotencyCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

func (c *ResilientIdempotencyCache) convert(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.log.Debug().Str("operation", op).Msg("circuit open, request rejected")
		return ErrCircuitOpen
	}
	c.log.Warn().Err(err).Str("operation", op).Msg("idempotency cache call failed")
	return err
}
