package genai

import (
	"context"
	"fmt"
	"time"

	"github.com/mosadd1X/novelforge-ai-sub003/observe"
	"github.com/mosadd1X/novelforge-ai-sub003/resilience"
)

// DefaultMaxRetries is the local retry budget for transient errors.
const DefaultMaxRetries = 3

// Request is one generation request.
type Request struct {
	// Model is the model identifier ("gemini-2.0-flash").
	Model string

	// Prompt is the full prompt text.
	Prompt string

	// Temperature is the sampling temperature. Zero means provider
	// default.
	Temperature float64

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int
}

// InvokeFunc performs one provider call with one credential. The client
// supplies retries and rotation around it.
type InvokeFunc func(ctx context.Context, cred Credential, req Request) (Response, error)

// Config configures a Client.
type Config struct {
	// Provider names the upstream in logs and telemetry.
	// Default: gemini
	Provider string

	// MaxRetries is the transient-error retry budget per call. Rotation
	// on rate-limit errors does not consume it.
	// Default: DefaultMaxRetries
	MaxRetries int

	// Backoff shapes the delay between transient-error retries.
	// Default: 1s base, ×2 per attempt, 5 minute cap, jittered
	Backoff resilience.BackoffConfig
}

// Client calls the generative API with credential rotation and local
// retry.
type Client struct {
	config  Config
	pool    *Pool
	invoke  InvokeFunc
	backoff *resilience.Backoff
	logger  observe.Logger
	metrics observe.Metrics

	// sleep waits out a backoff delay. Swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger observe.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the telemetry sink.
func WithMetrics(m observe.Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient creates a Client over the credential pool and transport.
func NewClient(pool *Pool, invoke InvokeFunc, config Config, opts ...Option) (*Client, error) {
	if pool == nil || pool.Size() == 0 {
		return nil, ErrEmptyPool
	}
	if invoke == nil {
		return nil, fmt.Errorf("genai: invoke function is required")
	}

	// Apply defaults
	if config.Provider == "" {
		config.Provider = "gemini"
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.Backoff == (resilience.BackoffConfig{}) {
		config.Backoff = resilience.BackoffConfig{Jitter: true}
	}

	c := &Client{
		config:  config,
		pool:    pool,
		invoke:  invoke,
		backoff: resilience.NewBackoff(config.Backoff),
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Pool returns the client's credential pool.
func (c *Client) Pool() *Pool { return c.pool }

// Generate performs one generation call.
//
// Transient transport errors are retried locally with jittered
// exponential backoff up to MaxRetries. Rate-limit errors rotate to the
// next credential without consuming a retry slot; when the whole pool is
// rate limited the set is cleared once, and a second exhaustion
// surfaces resilience.ErrCredentialsExhausted. At most 2×pool-size
// rotations happen per call.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	cred, ok := c.pool.Acquire()
	if !ok {
		c.pool.ClearRateLimited()
		if cred, ok = c.pool.Acquire(); !ok {
			return Response{}, resilience.ErrCredentialsExhausted
		}
	}

	meta := observe.RequestMeta{Provider: c.config.Provider, Model: req.Model}
	log := c.logger.WithRequest(meta)

	var (
		retries     int
		switches    int
		cleared     bool
		maxSwitches = 2 * c.pool.Size()
	)

	for {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}

		meta.Attempt = retries + 1
		start := time.Now()
		resp, err := c.invoke(ctx, cred, req)
		c.metrics.RecordRequest(ctx, meta, time.Since(start), err)
		if err == nil {
			return resp, nil
		}

		switch resilience.Classify(err) {
		case resilience.KindRateLimit:
			c.pool.MarkCurrentRateLimited()
			switches++
			if switches > maxSwitches {
				return Response{}, fmt.Errorf("%w: %d rotations did not find a usable credential",
					resilience.ErrCredentialsExhausted, switches-1)
			}

			next, ok := c.pool.Advance()
			if !ok {
				if cleared {
					return Response{}, resilience.ErrCredentialsExhausted
				}
				// Provider quotas may have reset since the keys were
				// marked; give the whole pool one more pass.
				c.pool.ClearRateLimited()
				cleared = true
				if next, ok = c.pool.Advance(); !ok {
					return Response{}, resilience.ErrCredentialsExhausted
				}
			}
			cred = next
			log.Warn(ctx, "credential rate limited, rotating",
				observe.Field{Key: "credential", Value: cred.Name},
				observe.Field{Key: "switches", Value: switches})

		case resilience.KindTransient:
			retries++
			if retries > c.config.MaxRetries {
				return Response{}, fmt.Errorf("%w after %d retries: %w",
					resilience.ErrNetworkUnavailable, c.config.MaxRetries, err)
			}
			delay := c.backoff.Delay(retries)
			c.metrics.RecordRetry(ctx, meta)
			log.Debug(ctx, "transient error, backing off",
				observe.Field{Key: "attempt", Value: retries},
				observe.Field{Key: "delay", Value: delay.String()},
				observe.Field{Key: "error", Value: err.Error()})
			if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
				return Response{}, sleepErr
			}

		default:
			// Terminal, circuit-open, and timeout errors pass through;
			// higher layers decide whether to retry.
			return Response{}, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
