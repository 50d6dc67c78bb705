package resilience

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means requests flow normally.
	StateClosed State = iota
	// StateOpen means the breaker is failing fast.
	StateOpen
	// StateHalfOpen means the breaker is trialing recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// breaker opens. Default: 5
	FailureThreshold int

	// RecoveryTimeout is how long the breaker stays open before trialing
	// recovery. Default: 60 seconds
	RecoveryTimeout time.Duration

	// SuccessThreshold is the number of consecutive trial successes
	// required to close again from half-open. Default: 3
	SuccessThreshold int

	// OnStateChange is called after each state transition, outside the
	// breaker's lock. It may call back into the breaker.
	OnStateChange func(from, to State)
}

// CircuitBreaker tracks consecutive probe outcomes and fails fast while
// the network is known-bad.
//
// It never reopens without first passing through half-open: a closed
// breaker must accumulate FailureThreshold consecutive failures, then wait
// out RecoveryTimeout, then fail a trial, before it is open again.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu             sync.Mutex
	state          State
	failures       int
	trialSuccesses int
	openedAt       time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 3
	}

	return &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// transition is a recorded state change, notified after the lock drops.
type transition struct {
	from, to State
}

// RecordResult feeds one connectivity outcome into the breaker.
// The connection monitor calls this on every probe tick; forced checks
// call it immediately.
func (cb *CircuitBreaker) RecordResult(ok bool) {
	cb.mu.Lock()
	var ts []transition

	// An expired open period becomes half-open before the result applies,
	// so a success observed right after the timeout counts as trial #1.
	ts = cb.maybeHalfOpenLocked(ts)

	switch cb.state {
	case StateClosed:
		if ok {
			cb.failures = 0
		} else {
			cb.failures++
			if cb.failures >= cb.config.FailureThreshold {
				cb.openedAt = cb.now()
				ts = cb.setStateLocked(StateOpen, ts)
			}
		}

	case StateHalfOpen:
		if ok {
			cb.trialSuccesses++
			if cb.trialSuccesses >= cb.config.SuccessThreshold {
				cb.failures = 0
				ts = cb.setStateLocked(StateClosed, ts)
			}
		} else {
			// Any failure during the trial reopens and restarts the clock.
			cb.openedAt = cb.now()
			ts = cb.setStateLocked(StateOpen, ts)
		}

	case StateOpen:
		// Still inside the recovery timeout; result is ignored.
	}

	cb.mu.Unlock()
	cb.notify(ts)
}

// Allow reports whether work may proceed. It returns ErrCircuitOpen while
// the breaker is open and nil otherwise (half-open admits trial work).
func (cb *CircuitBreaker) Allow() error {
	if cb.State() == StateOpen {
		return ErrCircuitOpen
	}
	return nil
}

// State returns the current state, observing an elapsed recovery timeout.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	ts := cb.maybeHalfOpenLocked(nil)
	s := cb.state
	cb.mu.Unlock()
	cb.notify(ts)
	return s
}

// Reset forces the breaker back to closed and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	var ts []transition
	cb.failures = 0
	cb.trialSuccesses = 0
	if cb.state != StateClosed {
		ts = cb.setStateLocked(StateClosed, ts)
	}
	cb.mu.Unlock()
	cb.notify(ts)
}

// Snapshot returns current circuit breaker counters.
func (cb *CircuitBreaker) Snapshot() CircuitBreakerSnapshot {
	cb.mu.Lock()
	ts := cb.maybeHalfOpenLocked(nil)
	snap := CircuitBreakerSnapshot{
		State:          cb.state,
		Failures:       cb.failures,
		TrialSuccesses: cb.trialSuccesses,
		OpenedAt:       cb.openedAt,
	}
	cb.mu.Unlock()
	cb.notify(ts)
	return snap
}

func (cb *CircuitBreaker) maybeHalfOpenLocked(ts []transition) []transition {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.RecoveryTimeout {
		ts = cb.setStateLocked(StateHalfOpen, ts)
	}
	return ts
}

func (cb *CircuitBreaker) setStateLocked(state State, ts []transition) []transition {
	from := cb.state
	cb.state = state
	if state == StateHalfOpen {
		cb.trialSuccesses = 0
	}
	return append(ts, transition{from: from, to: state})
}

func (cb *CircuitBreaker) notify(ts []transition) {
	if cb.config.OnStateChange == nil {
		return
	}
	for _, t := range ts {
		cb.config.OnStateChange(t.from, t.to)
	}
}

// CircuitBreakerSnapshot contains circuit breaker counters.
type CircuitBreakerSnapshot struct {
	State          State
	Failures       int
	TrialSuccesses int
	OpenedAt       time.Time
}
