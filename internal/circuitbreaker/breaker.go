// Package circuitbreaker protects upstream data providers from being hammered
// while they are failing, and lets connectors fail fast or degrade instead.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrOpen is returned by Allow while the circuit is open.
var ErrOpen = errors.New("circuit breaker open")

// State represents the current state of the circuit breaker
type State int

// Circuit breaker states
const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Tripped, upstream calls are skipped
	StateHalfOpen              // Probing whether the upstream has recovered
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Thresholds defines the limits that will trigger the circuit breaker
type Thresholds struct {
	// Consecutive upstream failures before the circuit opens
	MaxConsecutiveFailures int `json:"max_consecutive_failures" yaml:"max_consecutive_failures"`
}

// CircuitBreaker tracks consecutive failures of a single upstream provider.
type CircuitBreaker struct {
	name       string
	thresholds Thresholds

	mu       sync.RWMutex
	state    State
	lastTrip time.Time
	failures int
	lastErr  error

	// Duration before a half-open probe is allowed
	resetDelay time.Duration

	// Count of consecutive successes in HalfOpen state
	successCount int

	// Successes required to close the circuit again
	successThreshold int

	// A half-open probe is in flight since probeStart
	probing    bool
	probeStart time.Time

	onTripCallback func(name, reason string)
}

// New creates a new CircuitBreaker for the named upstream.
func New(name string, t Thresholds) *CircuitBreaker {
	if t.MaxConsecutiveFailures <= 0 {
		t.MaxConsecutiveFailures = 5
	}
	return &CircuitBreaker{
		name:             name,
		thresholds:       t,
		state:            StateClosed,
		resetDelay:       time.Minute,
		successThreshold: 1,
	}
}

// WithResetDelay sets a custom reset delay and returns the circuit breaker
func (cb *CircuitBreaker) WithResetDelay(delay time.Duration) *CircuitBreaker {
	cb.resetDelay = delay
	return cb
}

// WithSuccessThreshold sets the number of successful calls needed to close the circuit
func (cb *CircuitBreaker) WithSuccessThreshold(threshold int) *CircuitBreaker {
	cb.successThreshold = threshold
	return cb
}

// WithTripCallback sets a callback function that is called when the circuit trips
func (cb *CircuitBreaker) WithTripCallback(callback func(name, reason string)) *CircuitBreaker {
	cb.onTripCallback = callback
	return cb
}

// Name returns the upstream this breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow reports whether an upstream call may proceed.
// An open circuit moves to half-open once the reset delay has elapsed, and
// half-open admits a single probe at a time. A probe that never reports back
// is abandoned after another reset delay.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.lastTrip) <= cb.resetDelay {
			return fmt.Errorf("%s: %w", cb.name, ErrOpen)
		}
		cb.transitionToHalfOpen()
	}

	if cb.probing && time.Since(cb.probeStart) <= cb.resetDelay {
		return fmt.Errorf("%s: %w", cb.name, ErrOpen)
	}
	cb.probing = true
	cb.probeStart = time.Now()
	return nil
}

// RecordSuccess registers a successful upstream call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.lastErr = nil
	cb.probing = false
	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = StateClosed
			cb.successCount = 0
			logrus.WithField("upstream", cb.name).Info("Circuit breaker closed: upstream has recovered")
		}
	}
}

// RecordFailure registers a failed upstream call and trips the circuit
// once the failure threshold is reached. A failed half-open probe reopens it.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastErr = err
	cb.probing = false

	if cb.state == StateHalfOpen {
		cb.trip(fmt.Sprintf("probe failed: %v", err))
		return
	}
	if cb.state == StateClosed && cb.failures >= cb.thresholds.MaxConsecutiveFailures {
		cb.trip(fmt.Sprintf("%d consecutive failures, last: %v", cb.failures, err))
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// LastError returns the most recent upstream failure, if any.
func (cb *CircuitBreaker) LastError() error {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.lastErr
}

// Reset forcibly resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.successCount = 0
	cb.failures = 0
	cb.lastErr = nil
	cb.probing = false
	logrus.WithField("upstream", cb.name).Info("Circuit breaker manually reset to closed state")
}

// transitionToHalfOpen changes the circuit state to half-open for testing
// recovery. Caller holds the lock.
func (cb *CircuitBreaker) transitionToHalfOpen() {
	cb.state = StateHalfOpen
	cb.successCount = 0
	cb.probing = false
	logrus.WithField("upstream", cb.name).Info("Circuit breaker half-open: probing upstream")
}

// trip sets the circuit breaker to open state. Caller holds the lock.
func (cb *CircuitBreaker) trip(reason string) {
	cb.state = StateOpen
	cb.lastTrip = time.Now()
	cb.successCount = 0
	logrus.WithField("upstream", cb.name).Warnf("Circuit breaker tripped: %s", reason)

	if cb.onTripCallback != nil {
		go cb.onTripCallback(cb.name, reason)
	}
}
