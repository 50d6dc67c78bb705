package monitor

import (
	"sync"
	"time"
)

// Status is the current network state as seen by the monitor.
type Status int

const (
	// StatusConnected means the last probe reached the internet.
	StatusConnected Status = iota
	// StatusDisconnected means the last probe failed.
	StatusDisconnected
	// StatusUnstable means connectivity returned while the previous
	// state still carried consecutive failures: the link is flapping.
	StatusUnstable
	// StatusChecking means a check is in flight and no verdict exists
	// yet (startup, or a forced check).
	StatusChecking
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusUnstable:
		return "unstable"
	case StatusChecking:
		return "checking"
	default:
		return "unknown"
	}
}

// Online reports whether requests have a chance of succeeding.
func (s Status) Online() bool {
	return s == StatusConnected || s == StatusUnstable
}

// emaWeight is the smoothing applied to average response time:
// 80% history, 20% newest sample.
const emaWeight = 0.8

// Metrics is the shared counter block mutated by the monitor and the
// queue processor. All methods are safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	totalRequests        int64
	successfulRequests   int64
	failedRequests       int64
	retriedRequests      int64
	consecutiveFailures  int
	consecutiveSuccesses int
	averageResponseTime  time.Duration
	lastConnectionCheck  time.Time
}

// NewMetrics creates an empty metrics block.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordProbe folds one connectivity check into the counters and returns
// the consecutive-failure count that preceded it (the input to the
// Unstable derivation).
func (m *Metrics) RecordProbe(connected bool, latency time.Duration, at time.Time) (prevFailures int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prevFailures = m.consecutiveFailures
	m.lastConnectionCheck = at

	if connected {
		m.consecutiveFailures = 0
		m.consecutiveSuccesses++
		m.observeLocked(latency)
	} else {
		m.consecutiveSuccesses = 0
		m.consecutiveFailures++
	}
	return prevFailures
}

// IncTotal counts an accepted request.
func (m *Metrics) IncTotal() {
	m.mu.Lock()
	m.totalRequests++
	m.mu.Unlock()
}

// RecordRequestSuccess counts a completed request and folds its duration
// into the response-time average.
func (m *Metrics) RecordRequestSuccess(duration time.Duration) {
	m.mu.Lock()
	m.successfulRequests++
	m.observeLocked(duration)
	m.mu.Unlock()
}

// RecordRequestFailure counts a failed attempt.
func (m *Metrics) RecordRequestFailure() {
	m.mu.Lock()
	m.failedRequests++
	m.mu.Unlock()
}

// RecordRequestRetry counts a re-enqueued request.
func (m *Metrics) RecordRequestRetry() {
	m.mu.Lock()
	m.retriedRequests++
	m.mu.Unlock()
}

// Clear resets every counter. Explicit operation only; metrics otherwise
// live as long as the manager.
func (m *Metrics) Clear() {
	m.mu.Lock()
	m.totalRequests = 0
	m.successfulRequests = 0
	m.failedRequests = 0
	m.retriedRequests = 0
	m.consecutiveFailures = 0
	m.consecutiveSuccesses = 0
	m.averageResponseTime = 0
	m.lastConnectionCheck = time.Time{}
	m.mu.Unlock()
}

func (m *Metrics) observeLocked(sample time.Duration) {
	if sample <= 0 {
		return
	}
	if m.averageResponseTime == 0 {
		m.averageResponseTime = sample
		return
	}
	m.averageResponseTime = time.Duration(
		emaWeight*float64(m.averageResponseTime) + (1-emaWeight)*float64(sample))
}

// Snapshot returns a consistent copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MetricsSnapshot{
		TotalRequests:        m.totalRequests,
		SuccessfulRequests:   m.successfulRequests,
		FailedRequests:       m.failedRequests,
		RetriedRequests:      m.retriedRequests,
		ConsecutiveFailures:  m.consecutiveFailures,
		ConsecutiveSuccesses: m.consecutiveSuccesses,
		AverageResponseTime:  m.averageResponseTime,
		LastConnectionCheck:  m.lastConnectionCheck,
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	TotalRequests        int64
	SuccessfulRequests   int64
	FailedRequests       int64
	RetriedRequests      int64
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	AverageResponseTime  time.Duration
	LastConnectionCheck  time.Time
}

// Transition is one entry of the bounded status history.
type Transition struct {
	At     time.Time
	Status Status
}

// historyCap bounds the diagnostic history; it is not authoritative state.
const historyCap = 100
