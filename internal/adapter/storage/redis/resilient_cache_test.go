package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyCache struct {
	mu    sync.Mutex
	fail  bool
	calls int
	data  map[string][]byte
}

func (f *flakyCache) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errors.New("connection refused")
	}
	return f.data[key], nil
}

func (f *flakyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return errors.New("connection refused")
	}
	f.data[key] = value
	return nil
}

type stateRecorder struct {
	mu     sync.Mutex
	states []string
}

func (r *stateRecorder) RecordCircuitState(name, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

type circuitMetrics struct {
	ports.NoopMetrics
	rec *stateRecorder
}

func (m circuitMetrics) RecordCircuitState(name, state string) {
	m.rec.RecordCircuitState(name, state)
}

func testBreakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             50 * time.Millisecond,
		ConsecutiveFailures: 2,
		OperationTimeout:    time.Second,
	}
}

func TestResilientCache_PassThrough(t *testing.T) {
	inner := &flakyCache{data: map[string][]byte{}}
	rc := NewResilientIdempotencyCache(inner, testBreakerConfig(), nil, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "k", []byte("v"), time.Hour))
	got, err := rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	miss, err := rc.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, miss)
	assert.Equal(t, gobreaker.StateClosed, rc.State())
}

func TestResilientCache_TripsAndRecovers(t *testing.T) {
	inner := &flakyCache{data: map[string][]byte{}, fail: true}
	rec := &stateRecorder{}
	rc := NewResilientIdempotencyCache(inner, testBreakerConfig(), circuitMetrics{rec: rec}, zerolog.Nop())
	ctx := context.Background()

	_, err := rc.Get(ctx, "k")
	assert.Error(t, err)
	_, err = rc.Get(ctx, "k")
	assert.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, rc.State())

	callsBefore := inner.calls
	_, err = rc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, callsBefore, inner.calls, "open breaker must not reach redis")

	inner.mu.Lock()
	inner.fail = false
	inner.mu.Unlock()
	time.Sleep(80 * time.Millisecond)

	_, err = rc.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, rc.State())
	assert.Equal(t, []string{"open", "half-open", "closed"}, rec.states)
}
