package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mosadd1X/novelforge-ai-sub003/monitor"
	"github.com/mosadd1X/novelforge-ai-sub003/observe"
	"github.com/mosadd1X/novelforge-ai-sub003/probe"
	"github.com/mosadd1X/novelforge-ai-sub003/queue"
	"github.com/mosadd1X/novelforge-ai-sub003/resilience"
)

// DefaultWaitTimeout bounds Execute when the caller passes no timeout.
const DefaultWaitTimeout = 5 * time.Minute

// Config configures a Manager and its owned components.
type Config struct {
	Probe     probe.Config
	Breaker   resilience.CircuitBreakerConfig
	Monitor   monitor.Config
	Processor queue.Config
}

// Manager is the resilience facade.
type Manager struct {
	config   Config
	logger   observe.Logger
	metrics  observe.Metrics
	notifier monitor.Notifier
	renderer Renderer

	prober     *probe.Prober
	breaker    *resilience.CircuitBreaker
	netMetrics *monitor.Metrics
	mon        *monitor.Monitor
	queue      *queue.Queue
	processor  *queue.Processor

	checks singleflight.Group

	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger shared with the owned components.
func WithLogger(logger observe.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the telemetry sink.
func WithMetrics(metrics observe.Metrics) Option {
	return func(m *Manager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// WithNotifier sets the user-facing notifier for status and retry lines.
func WithNotifier(n monitor.Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithRenderer replaces the plain-text status panel renderer.
func WithRenderer(r Renderer) Option {
	return func(m *Manager) {
		if r != nil {
			m.renderer = r
		}
	}
}

// WithProber replaces the connectivity prober. Used by tests to inject
// fake probe targets.
func WithProber(p *probe.Prober) Option {
	return func(m *Manager) {
		if p != nil {
			m.prober = p
		}
	}
}

// New assembles a Manager and its components. Call Start to launch the
// background loops.
func New(config Config, opts ...Option) *Manager {
	m := &Manager{
		config:   config,
		logger:   observe.NopLogger(),
		metrics:  observe.NopMetrics(),
		renderer: textRenderer{},
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.prober == nil {
		m.prober = probe.New(config.Probe)
	}

	// Breaker transitions are reported through telemetry; a caller
	// callback, if any, still fires.
	userCallback := config.Breaker.OnStateChange
	config.Breaker.OnStateChange = func(from, to resilience.State) {
		m.metrics.RecordBreakerTransition(context.Background(), from.String(), to.String())
		m.logger.Info(context.Background(), "circuit breaker state changed",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()})
		if userCallback != nil {
			userCallback(from, to)
		}
	}
	m.breaker = resilience.NewCircuitBreaker(config.Breaker)

	m.netMetrics = monitor.NewMetrics()
	m.mon = monitor.New(m.prober, m.breaker, m.netMetrics, config.Monitor,
		monitor.WithLogger(m.logger.WithComponent("monitor")),
		monitor.WithNotifier(m.notifier),
	)

	m.queue = queue.NewQueue()
	m.processor = queue.NewProcessor(m.queue, m.breaker, m.mon.Status, m.netMetrics, config.Processor,
		queue.WithLogger(m.logger.WithComponent("processor")),
		queue.WithMetrics(m.metrics),
		queue.WithNotifier(m.notifier),
	)

	return m
}

// Start launches the monitor and processor loops. Idempotent; the second
// and later calls do nothing.
func (m *Manager) Start() {
	if m.started {
		return
	}
	m.started = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.group, ctx = errgroup.WithContext(ctx)

	m.group.Go(func() error {
		err := m.mon.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	m.group.Go(func() error {
		err := m.processor.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

// Shutdown stops the background loops and waits up to timeout for them
// to exit. Queued requests stay queued; nothing is persisted.
func (m *Manager) Shutdown(timeout time.Duration) error {
	if !m.started {
		return nil
	}
	m.cancel()

	done := make(chan error, 1)
	go func() { done <- m.group.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("manager: shutdown timed out after %s", timeout)
	}
}

// RequestOption customizes a queued request.
type RequestOption func(*queue.Request)

// WithID sets the request ID instead of generating one.
func WithID(id string) RequestOption {
	return func(r *queue.Request) { r.ID = id }
}

// WithPriority sets the queue tier. The facade default is Normal.
func WithPriority(p queue.Priority) RequestOption {
	return func(r *queue.Request) { r.Priority = p }
}

// WithMaxRetries overrides the processor's retry budget for one request.
func WithMaxRetries(n int) RequestOption {
	return func(r *queue.Request) { r.MaxRetries = n }
}

// QueueRequest enqueues work for background execution and returns its
// request ID. The handler (optional) receives the terminal result.
func (m *Manager) QueueRequest(call queue.Callable, done queue.Handler, opts ...RequestOption) (string, error) {
	req := &queue.Request{Priority: queue.PriorityNormal, Call: call}
	for _, opt := range opts {
		opt(req)
	}
	return m.processor.Submit(req, done)
}

// CancelRequest removes a queued request and its handler. Best-effort;
// see the queue package for the exact semantics.
func (m *Manager) CancelRequest(id string) bool {
	return m.processor.Cancel(id)
}

type executeResult struct {
	value any
	err   error
}

// Execute queues work and waits for its terminal result.
//
// When the circuit breaker is open it fails fast without queuing. When
// the wait exceeds timeout (DefaultWaitTimeout if zero) it returns
// resilience.ErrWaitTimeout after a best-effort cancel; the request may
// keep retrying in the background with its result dropped.
func (m *Manager) Execute(ctx context.Context, timeout time.Duration, call queue.Callable, opts ...RequestOption) (any, error) {
	if err := m.breaker.Allow(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	results := make(chan executeResult, 1)
	id, err := m.QueueRequest(call, func(req *queue.Request, result any, err error) {
		results <- executeResult{value: result, err: err}
	}, opts...)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-results:
		return res.value, res.err
	case <-ctx.Done():
		m.processor.Cancel(id)
		return nil, ctx.Err()
	case <-timer.C:
		m.processor.Cancel(id)
		return nil, fmt.Errorf("%w: request %s still pending after %s",
			resilience.ErrWaitTimeout, id, timeout)
	}
}

// Snapshot is a point-in-time view of the whole resilience layer. Each
// member is internally consistent; members are captured in sequence.
type Snapshot struct {
	Network monitor.Status
	Breaker resilience.CircuitBreakerSnapshot
	Metrics monitor.MetricsSnapshot
	Queue   queue.Stats
	History []monitor.Transition
}

// Status returns the current layer-wide snapshot.
func (m *Manager) Status() Snapshot {
	return Snapshot{
		Network: m.mon.Status(),
		Breaker: m.breaker.Snapshot(),
		Metrics: m.netMetrics.Snapshot(),
		Queue:   m.processor.Stats(),
		History: m.mon.History(),
	}
}

// IsHealthy reports whether requests are likely to succeed right now:
// the network is usable and the breaker is not open.
func (m *Manager) IsHealthy() bool {
	return m.mon.Status().Online() && m.breaker.State() != resilience.StateOpen
}

// ForceConnectivityCheck runs one synchronous connectivity check,
// bypassing the monitor interval. Concurrent callers share a single
// in-flight check.
func (m *Manager) ForceConnectivityCheck(ctx context.Context) bool {
	v, _, _ := m.checks.Do("connectivity", func() (any, error) {
		return m.mon.CheckNow(ctx), nil
	})
	connected, _ := v.(bool)
	return connected
}

// OnStatusChange registers a network status callback. See
// monitor.Monitor.OnStatusChange for the invocation contract.
func (m *Manager) OnStatusChange(fn func(old, new monitor.Status)) {
	m.mon.OnStatusChange(fn)
}

// ClearMetrics resets the shared network counters.
func (m *Manager) ClearMetrics() {
	m.netMetrics.Clear()
}
