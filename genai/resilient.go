package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mosadd1X/novelforge-ai-sub003/cache"
	"github.com/mosadd1X/novelforge-ai-sub003/manager"
	"github.com/mosadd1X/novelforge-ai-sub003/observe"
	"github.com/mosadd1X/novelforge-ai-sub003/queue"
	"github.com/mosadd1X/novelforge-ai-sub003/resilience"
)

// Executor is the facade surface the resilient client needs. Satisfied
// by *manager.Manager.
type Executor interface {
	Execute(ctx context.Context, timeout time.Duration, call queue.Callable, opts ...manager.RequestOption) (any, error)
	QueueRequest(call queue.Callable, done queue.Handler, opts ...manager.RequestOption) (string, error)
	IsHealthy() bool
}

// ResilientConfig configures a ResilientClient.
type ResilientConfig struct {
	// WaitTimeout bounds how long Generate waits for the facade.
	// Default: manager.DefaultWaitTimeout
	WaitTimeout time.Duration

	// CacheTTL overrides the cache policy's default TTL when set.
	CacheTTL time.Duration
}

// ResilientClient layers response caching, facade-mediated execution,
// and an offline fallback on top of a Client.
type ResilientClient struct {
	config ResilientConfig
	client *Client
	exec   Executor
	logger observe.Logger

	store  cache.Cache
	keyer  cache.Keyer
	policy cache.Policy

	bulkhead *resilience.Bulkhead
	pacer    *resilience.Pacer
}

// ResilientOption customizes a ResilientClient.
type ResilientOption func(*ResilientClient)

// WithCache sets the response cache and its policy.
func WithCache(store cache.Cache, policy cache.Policy) ResilientOption {
	return func(rc *ResilientClient) {
		rc.store = store
		rc.policy = policy
	}
}

// WithKeyer replaces the cache key generator.
func WithKeyer(k cache.Keyer) ResilientOption {
	return func(rc *ResilientClient) {
		if k != nil {
			rc.keyer = k
		}
	}
}

// WithBulkhead caps concurrent generation calls.
func WithBulkhead(b *resilience.Bulkhead) ResilientOption {
	return func(rc *ResilientClient) { rc.bulkhead = b }
}

// WithPacer paces generation calls under a provider RPM quota.
func WithPacer(p *resilience.Pacer) ResilientOption {
	return func(rc *ResilientClient) { rc.pacer = p }
}

// WithResilientLogger sets the logger.
func WithResilientLogger(logger observe.Logger) ResilientOption {
	return func(rc *ResilientClient) {
		if logger != nil {
			rc.logger = logger
		}
	}
}

// NewResilientClient wraps client with the facade and optional caching.
func NewResilientClient(client *Client, exec Executor, config ResilientConfig, opts ...ResilientOption) (*ResilientClient, error) {
	if client == nil {
		return nil, fmt.Errorf("genai: client is required")
	}
	if exec == nil {
		return nil, fmt.Errorf("genai: executor is required")
	}

	// Apply defaults
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = manager.DefaultWaitTimeout
	}

	rc := &ResilientClient{
		config: config,
		client: client,
		exec:   exec,
		logger: observe.NopLogger(),
		keyer:  cache.NewDefaultKeyer(),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc, nil
}

// Generate produces a response for req, serving from cache when
// possible.
//
// On a cache miss the call goes through the facade's queue with its
// retry and gating machinery. While the facade reports unhealthy, only
// cached responses are served; misses fail fast with
// resilience.ErrNetworkUnavailable instead of queuing work that cannot
// run.
func (rc *ResilientClient) Generate(ctx context.Context, req Request, opts ...manager.RequestOption) (Response, error) {
	key := rc.cacheKey(ctx, req)
	if resp, ok := rc.cached(ctx, key); ok {
		return resp, nil
	}

	if !rc.exec.IsHealthy() {
		return Response{}, fmt.Errorf("%w: offline and no cached response", resilience.ErrNetworkUnavailable)
	}

	result, err := rc.exec.Execute(ctx, rc.config.WaitTimeout, rc.callable(req), opts...)
	if err != nil {
		return Response{}, err
	}
	resp, ok := result.(Response)
	if !ok {
		return Response{}, fmt.Errorf("genai: unexpected result type %T", result)
	}

	rc.storeResponse(ctx, key, resp)
	return resp, nil
}

// GenerateAsync queues a generation without waiting. The handler, if
// any, receives the terminal outcome; successful responses are cached
// before delivery.
func (rc *ResilientClient) GenerateAsync(req Request, done func(Response, error), opts ...manager.RequestOption) (string, error) {
	key := rc.cacheKey(context.Background(), req)

	var handler queue.Handler
	if done != nil || key != "" {
		handler = func(_ *queue.Request, result any, err error) {
			resp, _ := result.(Response)
			if err == nil {
				rc.storeResponse(context.Background(), key, resp)
			}
			if done != nil {
				done(resp, err)
			}
		}
	}
	return rc.exec.QueueRequest(rc.callable(req), handler, opts...)
}

// callable wraps the underlying client call with the optional pacer and
// bulkhead.
func (rc *ResilientClient) callable(req Request) queue.Callable {
	return func(ctx context.Context) (any, error) {
		if rc.pacer != nil {
			if err := rc.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if rc.bulkhead != nil {
			if err := rc.bulkhead.Acquire(ctx); err != nil {
				return nil, err
			}
			defer rc.bulkhead.Release()
		}
		return rc.client.Generate(ctx, req)
	}
}

func (rc *ResilientClient) cacheKey(ctx context.Context, req Request) string {
	if rc.store == nil || !rc.policy.ShouldCache() {
		return ""
	}
	key, err := rc.keyer.Key(req.Model, req.Prompt, map[string]any{
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	})
	if err != nil {
		rc.logger.Warn(ctx, "cache key generation failed",
			observe.Field{Key: "model", Value: req.Model},
			observe.Field{Key: "error", Value: err.Error()})
		return ""
	}
	return key
}

func (rc *ResilientClient) cached(ctx context.Context, key string) (Response, bool) {
	if key == "" {
		return Response{}, false
	}
	data, ok := rc.store.Get(ctx, key)
	if !ok {
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		// A corrupt entry is dropped, not served.
		_ = rc.store.Delete(ctx, key)
		return Response{}, false
	}
	return resp, true
}

func (rc *ResilientClient) storeResponse(ctx context.Context, key string, resp Response) {
	if key == "" || resp.Empty() {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	ttl := rc.policy.EffectiveTTL(rc.config.CacheTTL)
	if err := rc.store.Set(ctx, key, data, ttl); err != nil {
		rc.logger.Warn(ctx, "response cache write failed",
			observe.Field{Key: "error", Value: err.Error()})
	}
}
