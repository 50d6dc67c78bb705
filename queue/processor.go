package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mosadd1X/novelforge-ai-sub003/monitor"
	"github.com/mosadd1X/novelforge-ai-sub003/observe"
	"github.com/mosadd1X/novelforge-ai-sub003/resilience"
)

// ErrNilCallable indicates a request was submitted without work to run.
var ErrNilCallable = errors.New("queue: callable is required")

// Handler receives a request's terminal result: exactly one of result
// and err is meaningful. Handlers run on the processor goroutine.
type Handler func(req *Request, result any, err error)

// StatusFunc reports the current network status. The processor only
// dequeues while the status is online.
type StatusFunc func() monitor.Status

// Config configures a Processor.
type Config struct {
	// MaxRetries is the retry budget for requests that do not set one.
	// Default: DefaultMaxRetries
	MaxRetries int

	// PopWait bounds how long one dequeue attempt blocks.
	// Default: 1 second
	PopWait time.Duration

	// GatePause is how long the loop sleeps when the breaker is open or
	// the network is down, without dequeuing. Default: 1 second
	GatePause time.Duration

	// ShowRetryMessages emits a notification for every scheduled retry.
	ShowRetryMessages bool

	// RetryDelay computes the re-enqueue delay from the failure count.
	// Default: resilience.QueueRetryDelay
	RetryDelay func(retryCount int) time.Duration
}

// Stats is a point-in-time view of processor throughput.
type Stats struct {
	Queued    int
	Active    int
	Processed int64
	Succeeded int64
	Failed    int64
	Retried   int64
}

// Processor drains the queue with a single worker.
type Processor struct {
	config     Config
	queue      *Queue
	breaker    *resilience.CircuitBreaker
	status     StatusFunc
	netMetrics *monitor.Metrics
	obsMetrics observe.Metrics
	logger     observe.Logger
	notifier   monitor.Notifier

	retryDelay func(retryCount int) time.Duration

	mu        sync.Mutex
	handlers  map[string]Handler
	active    map[string]*Request
	processed int64
	succeeded int64
	failed    int64
	retried   int64
}

// Option customizes a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger observe.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the telemetry sink for queue depth and retry counts.
func WithMetrics(m observe.Metrics) Option {
	return func(p *Processor) {
		if m != nil {
			p.obsMetrics = m
		}
	}
}

// WithNotifier sets the user-facing notifier for retry messages.
func WithNotifier(n monitor.Notifier) Option {
	return func(p *Processor) {
		if n != nil {
			p.notifier = n
		}
	}
}

// NewProcessor creates a Processor over the given queue. The breaker and
// status function gate dequeuing; network metrics are shared with the
// monitor.
func NewProcessor(q *Queue, breaker *resilience.CircuitBreaker, status StatusFunc, netMetrics *monitor.Metrics, config Config, opts ...Option) *Processor {
	// Apply defaults
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.PopWait <= 0 {
		config.PopWait = time.Second
	}
	if config.GatePause <= 0 {
		config.GatePause = time.Second
	}
	if config.RetryDelay == nil {
		config.RetryDelay = resilience.QueueRetryDelay
	}

	p := &Processor{
		config:     config,
		queue:      q,
		breaker:    breaker,
		status:     status,
		netMetrics: netMetrics,
		obsMetrics: observe.NopMetrics(),
		logger:     observe.NopLogger(),
		retryDelay: config.RetryDelay,
		handlers:   make(map[string]Handler),
		active:     make(map[string]*Request),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit enqueues a request and registers its terminal handler. Returns
// the request ID (generated when the request carries none).
func (p *Processor) Submit(req *Request, done Handler) (string, error) {
	if req == nil || req.Call == nil {
		return "", ErrNilCallable
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.MaxRetries <= 0 {
		req.MaxRetries = p.config.MaxRetries
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	if done != nil {
		p.mu.Lock()
		p.handlers[req.ID] = done
		p.mu.Unlock()
	}

	p.netMetrics.IncTotal()
	p.queue.Push(req)
	p.obsMetrics.RecordQueueDepth(context.Background(), p.queue.Len())

	p.logger.Debug(context.Background(), "request queued",
		observe.Field{Key: "request_id", Value: req.ID},
		observe.Field{Key: "priority", Value: req.Priority.String()})
	return req.ID, nil
}

// Cancel removes a queued request and its handler. Best-effort: work
// already executing and retries already scheduled are not interrupted;
// their result is dropped because the handler is gone. Returns true when
// a queued item was actually removed.
func (p *Processor) Cancel(id string) bool {
	removed := p.queue.Remove(id) != nil

	p.mu.Lock()
	delete(p.handlers, id)
	p.mu.Unlock()

	if removed {
		p.obsMetrics.RecordQueueDepth(context.Background(), p.queue.Len())
	}
	return removed
}

// Stats returns a snapshot of processor counters.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Queued:    p.queue.Len(),
		Active:    len(p.active),
		Processed: p.processed,
		Succeeded: p.succeeded,
		Failed:    p.failed,
		Retried:   p.retried,
	}
}

// Run drains the queue until ctx is cancelled. While the breaker is open
// or the network is offline the loop sleeps without dequeuing, so queued
// requests keep their place.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info(ctx, "queue processor started")

	for {
		if ctx.Err() != nil {
			p.logger.Info(ctx, "queue processor stopped")
			return ctx.Err()
		}

		if p.breaker.Allow() != nil || !p.status().Online() {
			if !sleepCtx(ctx, p.config.GatePause) {
				p.logger.Info(ctx, "queue processor stopped")
				return ctx.Err()
			}
			continue
		}

		req, ok := p.queue.Pop(ctx, p.config.PopWait)
		if !ok {
			continue
		}
		p.obsMetrics.RecordQueueDepth(ctx, p.queue.Len())
		p.execute(ctx, req)
	}
}

func (p *Processor) execute(ctx context.Context, req *Request) {
	p.mu.Lock()
	p.active[req.ID] = req
	p.mu.Unlock()

	start := time.Now()
	result, err := p.safeCall(ctx, req)
	duration := time.Since(start)

	p.mu.Lock()
	delete(p.active, req.ID)
	p.processed++
	p.mu.Unlock()

	if err == nil {
		p.netMetrics.RecordRequestSuccess(duration)
		p.mu.Lock()
		p.succeeded++
		p.mu.Unlock()
		p.finish(req, result, nil)
		return
	}

	req.ErrorHistory = append(req.ErrorHistory, err.Error())
	req.RetryCount++

	if req.RetryCount <= req.MaxRetries {
		p.scheduleRetry(ctx, req, err)
		return
	}

	p.netMetrics.RecordRequestFailure()
	p.mu.Lock()
	p.failed++
	p.mu.Unlock()
	p.logger.Warn(ctx, "request failed permanently",
		observe.Field{Key: "request_id", Value: req.ID},
		observe.Field{Key: "attempts", Value: req.RetryCount},
		observe.Field{Key: "error", Value: err.Error()})
	p.finish(req, nil, err)
}

// scheduleRetry re-enqueues the request after the backoff delay. The
// timer fires even if the request was cancelled in the meantime; the
// terminal result is then dropped in finish.
func (p *Processor) scheduleRetry(ctx context.Context, req *Request, cause error) {
	delay := p.retryDelay(req.RetryCount)

	p.netMetrics.RecordRequestRetry()
	p.obsMetrics.RecordRetry(ctx, observe.RequestMeta{ID: req.ID, Priority: req.Priority.String()})
	p.mu.Lock()
	p.retried++
	p.mu.Unlock()

	p.logger.Debug(ctx, "request retry scheduled",
		observe.Field{Key: "request_id", Value: req.ID},
		observe.Field{Key: "attempt", Value: req.RetryCount},
		observe.Field{Key: "delay", Value: delay.String()},
		observe.Field{Key: "error", Value: cause.Error()})

	if p.config.ShowRetryMessages && p.notifier != nil {
		p.notifier.Notify(ctx, fmt.Sprintf(
			"request failed, retrying in %s (attempt %d of %d)",
			delay, req.RetryCount, req.MaxRetries))
	}

	time.AfterFunc(delay, func() {
		p.queue.Push(req)
	})
}

// finish delivers the terminal result. A missing handler means the
// request was cancelled or submitted fire-and-forget; the result is
// dropped.
func (p *Processor) finish(req *Request, result any, err error) {
	p.mu.Lock()
	done := p.handlers[req.ID]
	delete(p.handlers, req.ID)
	p.mu.Unlock()

	if done == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(context.Background(), "result handler panicked",
				observe.Field{Key: "request_id", Value: req.ID},
				observe.Field{Key: "panic", Value: fmt.Sprint(r)})
		}
	}()
	done(req, result, err)
}

func (p *Processor) safeCall(ctx context.Context, req *Request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("queue: request %s panicked: %v", req.ID, r)
		}
	}()
	return req.Call(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
