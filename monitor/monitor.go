package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mosadd1X/novelforge-ai-sub003/observe"
	"github.com/mosadd1X/novelforge-ai-sub003/probe"
	"github.com/mosadd1X/novelforge-ai-sub003/resilience"
)

// Notifier receives the human-readable status lines. Formatting beyond
// plain text is the UI layer's business, not this package's.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, message string)

// Notify calls the function.
func (f NotifierFunc) Notify(ctx context.Context, message string) { f(ctx, message) }

// Config configures the connection monitor.
type Config struct {
	// Interval between connectivity checks.
	// Default: 30 seconds
	Interval time.Duration

	// ShutdownPoll bounds how long a sleeping loop can go without
	// observing shutdown. Default: 5 seconds
	ShutdownPoll time.Duration

	// ShowStatusMessages emits a notification on every status change.
	ShowStatusMessages bool
}

// Monitor polls the prober on an interval and keeps the shared network
// view current.
type Monitor struct {
	config   Config
	prober   *probe.Prober
	breaker  *resilience.CircuitBreaker
	metrics  *Metrics
	logger   observe.Logger
	notifier Notifier
	now      func() time.Time

	mu        sync.Mutex
	status    Status
	history   []Transition
	callbacks []func(old, new Status)
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger.
func WithLogger(logger observe.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotifier sets the user-facing notifier.
func WithNotifier(n Notifier) Option {
	return func(m *Monitor) {
		if n != nil {
			m.notifier = n
		}
	}
}

// New creates a Monitor. The breaker and metrics are shared with the
// rest of the resilience layer; the monitor is their writer for
// probe-derived fields.
func New(prober *probe.Prober, breaker *resilience.CircuitBreaker, metrics *Metrics, config Config, opts ...Option) *Monitor {
	// Apply defaults
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.ShutdownPoll <= 0 || config.ShutdownPoll > 5*time.Second {
		config.ShutdownPoll = 5 * time.Second
	}

	m := &Monitor{
		config:  config,
		prober:  prober,
		breaker: breaker,
		metrics: metrics,
		logger:  observe.NopLogger(),
		now:     time.Now,
		status:  StatusChecking,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the current network status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// History returns a copy of the bounded status history, oldest first.
func (m *Monitor) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// OnStatusChange registers a callback fired on every status transition.
// Callbacks run outside the monitor's lock and are panic-isolated.
func (m *Monitor) OnStatusChange(fn func(old, new Status)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.callbacks = append(m.callbacks, fn)
	m.mu.Unlock()
}

// Run polls until ctx is cancelled. A failing or panicking iteration is
// logged and the loop continues; the monitor runs unsupervised for the
// process lifetime.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info(ctx, "connection monitor started",
		observe.Field{Key: "interval", Value: m.config.Interval.String()})

	for {
		m.runOnce(ctx)
		if !m.sleep(ctx) {
			m.logger.Info(ctx, "connection monitor stopped")
			return ctx.Err()
		}
	}
}

// CheckNow performs one synchronous check, bypassing the interval, and
// returns the connectivity verdict. Status, metrics, history, and the
// breaker are updated exactly as an interval tick would.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	m.setStatus(ctx, StatusChecking)
	res := m.prober.Check(ctx)
	m.apply(ctx, res)
	return res.Connected
}

func (m *Monitor) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(ctx, "monitor iteration panicked",
				observe.Field{Key: "panic", Value: fmt.Sprint(r)})
		}
	}()

	res := m.prober.Check(ctx)
	m.apply(ctx, res)
}

func (m *Monitor) apply(ctx context.Context, res probe.Result) {
	prevFailures := m.metrics.RecordProbe(res.Connected, res.Latency, m.now())

	next := StatusDisconnected
	if res.Connected {
		if prevFailures > 0 {
			next = StatusUnstable
		} else {
			next = StatusConnected
		}
	}

	m.setStatus(ctx, next)
	m.breaker.RecordResult(res.Connected)

	if !res.Connected && res.Err != nil {
		m.logger.Debug(ctx, "connectivity check failed",
			observe.Field{Key: "method", Value: res.Method},
			observe.Field{Key: "error", Value: res.Err.Error()})
	}
}

func (m *Monitor) setStatus(ctx context.Context, next Status) {
	m.mu.Lock()
	old := m.status
	if old == next {
		m.mu.Unlock()
		return
	}
	m.status = next
	m.history = append(m.history, Transition{At: m.now(), Status: next})
	if len(m.history) > historyCap {
		m.history = m.history[len(m.history)-historyCap:]
	}
	callbacks := make([]func(old, new Status), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, cb := range callbacks {
		m.safeCallback(ctx, cb, old, next)
	}

	m.logger.Info(ctx, "network status changed",
		observe.Field{Key: "from", Value: old.String()},
		observe.Field{Key: "to", Value: next.String()})

	if m.config.ShowStatusMessages && m.notifier != nil {
		m.notifier.Notify(ctx, statusMessage(old, next))
	}
}

func (m *Monitor) safeCallback(ctx context.Context, cb func(old, new Status), old, next Status) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(ctx, "status callback panicked",
				observe.Field{Key: "panic", Value: fmt.Sprint(r)})
		}
	}()
	cb(old, next)
}

func (m *Monitor) sleep(ctx context.Context) bool {
	remaining := m.config.Interval
	for remaining > 0 {
		slice := remaining
		if slice > m.config.ShutdownPoll {
			slice = m.config.ShutdownPoll
		}
		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		remaining -= slice
	}
	return true
}

func statusMessage(old, next Status) string {
	switch next {
	case StatusDisconnected:
		return "connection lost - queuing requests until the network returns"
	case StatusUnstable:
		return "connection is unstable - requests may be slow or retried"
	case StatusConnected:
		if old == StatusDisconnected || old == StatusUnstable {
			return "connection restored - processing queued requests"
		}
		return "connected"
	case StatusChecking:
		return "checking connection..."
	default:
		return next.String()
	}
}
