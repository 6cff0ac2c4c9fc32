package embedding

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a request
// because too many recent embedding calls failed.
var ErrCircuitOpen = errors.New("embedding circuit breaker is open")

// BreakerConfig tunes the circuit breaker around embedding calls.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that trips the
	// circuit. Default: 3.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before allowing probe
	// requests. Default: 30 seconds.
	Timeout time.Duration

	// HalfOpenMaxSuccesses is how many probe requests must succeed before
	// the circuit closes again. Default: 2.
	HalfOpenMaxSuccesses uint32
}

// BreakerMetrics reports cumulative circuit breaker activity.
type BreakerMetrics struct {
	TotalRequests        uint64
	TotalSuccesses       uint64
	TotalFailures        uint64
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker protects embedding HTTP calls from a failing backend. When the
// backend fails repeatedly the circuit opens and calls fail fast with
// ErrCircuitOpen instead of waiting out timeouts.
type Breaker struct {
	breaker *gobreaker.CircuitBreaker

	mu      sync.Mutex
	metrics BreakerMetrics
}

// NewBreaker creates a circuit breaker, filling in defaults for zero-valued
// config fields.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.MaxFailures == 0 {
		config.MaxFailures = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HalfOpenMaxSuccesses == 0 {
		config.HalfOpenMaxSuccesses = 2
	}

	b := &Breaker{}
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding",
		MaxRequests: config.HalfOpenMaxSuccesses,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
	})
	return b
}

// Execute runs fn through the circuit breaker. An open circuit returns
// ErrCircuitOpen without invoking fn. A cancelled context fails immediately.
func (b *Breaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	select {
	case <-ctx.Done():
		b.record(false)
		return nil, ctx.Err()
	default:
	}

	result, err := b.breaker.Execute(fn)
	if err != nil {
		b.record(false)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}

	b.record(true)
	return result, nil
}

// State returns "closed", "open" or "half-open".
func (b *Breaker) State() string {
	switch b.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Metrics returns a snapshot of cumulative activity.
func (b *Breaker) Metrics() BreakerMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := b.breaker.Counts()
	m := b.metrics
	m.ConsecutiveSuccesses = counts.ConsecutiveSuccesses
	m.ConsecutiveFailures = counts.ConsecutiveFailures
	return m
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.metrics.TotalRequests++
	if success {
		b.metrics.TotalSuccesses++
	} else {
		b.metrics.TotalFailures++
	}
}
