package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call without
// invoking the wrapped operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState is the observable state of a CircuitBreaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// CircuitBreaker counts consecutive failures of the wrapped operation and,
// once the threshold is reached, fails fast for the configured timeout.
// After the timeout a single trial call is allowed: success closes the
// circuit, failure reopens it. Instances are dependency-injected, never
// package globals, so tests hold isolated breakers.
type CircuitBreaker struct {
	mu        sync.Mutex
	threshold int
	timeout   time.Duration
	failures  int
	state     BreakerState
	openedAt  time.Time
	now       func() time.Time
}

// NewCircuitBreaker creates a closed breaker with the given failure
// threshold and open timeout.
func NewCircuitBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{
		threshold: threshold,
		timeout:   timeout,
		state:     BreakerClosed,
		now:       time.Now,
	}
}

// State returns the current breaker state for observability.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.timeout {
		return BreakerHalfOpen
	}
	return b.state
}

// Execute runs op under the breaker. While the circuit is open the call is
// rejected immediately with ErrCircuitOpen.
func (b *CircuitBreaker) Execute(op func() error) error {
	b.mu.Lock()
	trial := false
	if b.state == BreakerOpen {
		if b.now().Sub(b.openedAt) < b.timeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		trial = true
	}
	b.mu.Unlock()

	err := op()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		if trial || b.failures >= b.threshold {
			b.state = BreakerOpen
			b.openedAt = b.now()
		}
		return err
	}
	b.failures = 0
	b.state = BreakerClosed
	return nil
}
