// Package circuit implements a circuit breaker guarding market-data
// vendor calls. After a run of consecutive failures the breaker opens
// and requests are refused for a cooldown period; a single probe is
// allowed in the half-open state to test recovery.
package circuit

import (
	"sync"
	"time"
)

// BreakerState represents the circuit breaker state
type BreakerState string

const (
	StateClosed   BreakerState = "closed"    // Normal operation
	StateOpen     BreakerState = "open"      // Calls refused
	StateHalfOpen BreakerState = "half_open" // Testing recovery
)

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	MaxConsecutiveFailures int           `json:"max_consecutive_failures"`
	Cooldown               time.Duration `json:"cooldown"`
}

// DefaultBreakerConfig returns safe defaults
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxConsecutiveFailures: 3,
		Cooldown:               2 * time.Minute,
	}
}

// Breaker tracks consecutive vendor failures and gates further calls.
type Breaker struct {
	config              *BreakerConfig
	state               BreakerState
	consecutiveFailures int
	lastTripTime        time.Time
	probeInFlight       bool
	mu                  sync.Mutex
	onTrip              func()
	onReset             func()

	// now is swappable for tests
	now func() time.Time
}

// NewBreaker creates a new breaker in the closed state.
func NewBreaker(config *BreakerConfig) *Breaker {
	if config == nil {
		config = DefaultBreakerConfig()
	}
	return &Breaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// OnTrip sets the callback invoked when the breaker opens.
func (b *Breaker) OnTrip(handler func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = handler
}

// OnReset sets the callback invoked when the breaker closes again.
func (b *Breaker) OnReset(handler func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReset = handler
}

// Allow reports whether a call may proceed. In the half-open state only
// one probe call is admitted until its outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.lastTripTime) >= b.config.Cooldown {
			b.state = StateHalfOpen
			b.probeInFlight = true
			return true
		}
		return false
	case StateHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	}
	return false
}

// Release frees the in-flight call slot when a call ended with no
// recordable outcome, such as caller cancellation mid-flight. Without
// it a cancelled half-open call would hold the slot forever and the
// breaker could never re-test the vendor.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probeInFlight = false
}

// RecordSuccess resets the failure streak and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	wasOpen := b.state != StateClosed
	b.state = StateClosed
	b.consecutiveFailures = 0
	b.probeInFlight = false
	handler := b.onReset
	b.mu.Unlock()

	if wasOpen && handler != nil {
		handler()
	}
}

// RecordFailure notes a failed call and trips the breaker when the
// consecutive-failure limit is reached. A failed half-open probe
// re-opens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	b.consecutiveFailures++
	b.probeInFlight = false

	tripped := false
	if b.state == StateHalfOpen || b.consecutiveFailures >= b.config.MaxConsecutiveFailures {
		if b.state != StateOpen {
			tripped = true
		}
		b.state = StateOpen
		b.lastTripTime = b.now()
	}
	handler := b.onTrip
	b.mu.Unlock()

	if tripped && handler != nil {
		handler()
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
