package resilience

import (
	"context"
	"sync"
	"time"
)

// PacerConfig configures the client-side pacer.
type PacerConfig struct {
	// RequestsPerMinute is the sustained call rate to stay under.
	// Default: 60
	RequestsPerMinute float64

	// Burst is the maximum burst size.
	// Default: 5
	Burst int

	// WaitOnLimit waits for a token instead of returning an error.
	// Default: false
	WaitOnLimit bool

	// MaxWait is the maximum time to wait for a token.
	// Default: 5 seconds
	MaxWait time.Duration
}

// Pacer is a token-bucket limiter keeping generative calls under a
// provider's RPM quota, so rotation is a fallback rather than the norm.
type Pacer struct {
	config PacerConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewPacer creates a new pacer.
func NewPacer(config PacerConfig) *Pacer {
	// Apply defaults
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 60
	}
	if config.Burst <= 0 {
		config.Burst = 5
	}
	if config.MaxWait <= 0 {
		config.MaxWait = 5 * time.Second
	}

	return &Pacer{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
	}
}

// Allow reports whether a call may proceed now, consuming a token if so.
func (p *Pacer) Allow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refillLocked()
	if p.tokens >= 1 {
		p.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available, MaxWait elapses, or ctx is
// cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if p.Allow() {
		return nil
	}

	p.mu.Lock()
	needed := 1 - p.tokens
	perSecond := p.config.RequestsPerMinute / 60
	waitTime := time.Duration(needed / perSecond * float64(time.Second))
	p.mu.Unlock()

	if waitTime > p.config.MaxWait {
		waitTime = p.config.MaxWait
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(waitTime):
		if p.Allow() {
			return nil
		}
		return ErrRateLimited
	}
}

// Execute runs the operation if the pacer admits it.
func (p *Pacer) Execute(ctx context.Context, op func(context.Context) error) error {
	if p.config.WaitOnLimit {
		if err := p.Wait(ctx); err != nil {
			return err
		}
	} else if !p.Allow() {
		return ErrRateLimited
	}

	return op(ctx)
}

// Tokens returns the number of currently available tokens.
func (p *Pacer) Tokens() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refillLocked()
	return p.tokens
}

func (p *Pacer) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(p.lastRefill)
	p.lastRefill = now

	p.tokens += elapsed.Seconds() * p.config.RequestsPerMinute / 60
	if p.tokens > float64(p.config.Burst) {
		p.tokens = float64(p.config.Burst)
	}
}
