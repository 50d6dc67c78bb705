package cache

import "time"

// Policy decides whether and for how long responses are cached.
type Policy struct {
	// DefaultTTL applies when no override is given. Zero disables
	// caching.
	DefaultTTL time.Duration

	// MaxTTL clamps override TTLs. Zero means unclamped.
	MaxTTL time.Duration
}

// DefaultPolicy caches for an hour, capped at a day.
func DefaultPolicy() Policy {
	return Policy{DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour}
}

// NoCachePolicy disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache reports whether this policy caches at all.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL resolves the TTL for one entry: the override when
// positive, the default otherwise, clamped to MaxTTL.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
