package resilience

import (
	"math/rand/v2"
	"time"
)

// QueueRetryCap is the maximum delay between queued-request retries.
const QueueRetryCap = 300 * time.Second

// QueueRetryDelay returns the delay before the next attempt of a queued
// request that has failed retryCount times: min(300, 2^retryCount) seconds.
// The schedule is non-decreasing until the cap.
func QueueRetryDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	// 2^9 already exceeds the cap.
	if retryCount > 8 {
		return QueueRetryCap
	}
	d := time.Duration(1<<uint(retryCount)) * time.Second
	if d > QueueRetryCap {
		return QueueRetryCap
	}
	return d
}

// BackoffConfig configures jittered exponential backoff for the API
// client's local retries.
type BackoffConfig struct {
	// BaseDelay is the delay before the first retry.
	// Default: 1 second
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 5 minutes
	MaxDelay time.Duration

	// Multiplier grows the delay per attempt.
	// Default: 2.0
	Multiplier float64

	// Jitter spreads each delay by a random ±10-30% to avoid thundering
	// herds.
	Jitter bool
}

// Backoff computes retry delays.
type Backoff struct {
	config BackoffConfig
	rand   func() float64
}

// NewBackoff creates a backoff schedule.
func NewBackoff(config BackoffConfig) *Backoff {
	// Apply defaults
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Minute
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}

	return &Backoff{config: config, rand: rand.Float64}
}

// Delay returns the delay before retry number attempt (1-based).
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(b.config.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= b.config.Multiplier
		if delay >= float64(b.config.MaxDelay) {
			break
		}
	}
	if delay > float64(b.config.MaxDelay) {
		delay = float64(b.config.MaxDelay)
	}

	if b.config.Jitter {
		// Spread by 10-30% in either direction.
		frac := 0.1 + 0.2*b.rand()
		if b.rand() < 0.5 {
			frac = -frac
		}
		delay += delay * frac
	}

	return time.Duration(delay)
}

// Config returns the backoff configuration.
func (b *Backoff) Config() BackoffConfig {
	return b.config
}
