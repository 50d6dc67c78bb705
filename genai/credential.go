package genai

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptyPool indicates a pool was created without credentials.
var ErrEmptyPool = errors.New("genai: credential pool is empty")

// Credential is one provider credential: either a plain API key or a
// bearer token. Bearer tokens carrying an exp claim are treated as
// unusable once expired.
type Credential struct {
	// Name labels the credential in logs and snapshots ("key-1").
	Name string

	// APIKey is a plain provider key.
	APIKey string

	// BearerToken is a JWT bearer token, used when APIKey is empty.
	BearerToken string
}

// Empty reports whether the credential carries no secret.
func (c Credential) Empty() bool {
	return c.APIKey == "" && c.BearerToken == ""
}

// Expired reports whether a bearer token's exp claim has passed. The
// token is decoded without signature verification; only the provider can
// verify it, we just avoid sending tokens we know are dead. API keys and
// tokens without exp never expire.
func (c Credential) Expired(now time.Time) bool {
	if c.BearerToken == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.BearerToken, claims); err != nil {
		// Not a JWT; let the provider judge it.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}

// Pool is an ordered set of credentials with a rotation cursor. A
// credential marked rate-limited is skipped during rotation until the
// caller clears the set.
type Pool struct {
	mu          sync.Mutex
	creds       []Credential
	current     int
	rateLimited map[int]bool

	now func() time.Time
}

// NewPool creates a pool over the given credentials. Empty credentials
// are dropped; at least one usable credential is required.
func NewPool(creds ...Credential) (*Pool, error) {
	kept := make([]Credential, 0, len(creds))
	for _, c := range creds {
		if !c.Empty() {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmptyPool
	}

	return &Pool{
		creds:       kept,
		rateLimited: make(map[int]bool),
		now:         time.Now,
	}, nil
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// Current returns the credential at the cursor.
func (p *Pool) Current() Credential {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creds[p.current]
}

// Acquire returns the cursor credential, advancing past rate-limited and
// expired ones first. Returns false when no credential is usable.
func (p *Pool) Acquire() (Credential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for i := 0; i < len(p.creds); i++ {
		idx := (p.current + i) % len(p.creds)
		if p.usableLocked(idx, now) {
			p.current = idx
			return p.creds[idx], true
		}
	}
	return Credential{}, false
}

// MarkCurrentRateLimited records that the cursor credential hit a quota
// error; rotation skips it until ClearRateLimited.
func (p *Pool) MarkCurrentRateLimited() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rateLimited[p.current] = true
}

// Advance moves the cursor to the next usable credential, wrapping
// around. Returns false when no credential is usable; the cursor then
// stays put.
func (p *Pool) Advance() (Credential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for i := 1; i <= len(p.creds); i++ {
		idx := (p.current + i) % len(p.creds)
		if p.usableLocked(idx, now) {
			p.current = idx
			return p.creds[idx], true
		}
	}
	return Credential{}, false
}

// ClearRateLimited forgets every rate-limit mark, assuming provider
// quotas may have reset.
func (p *Pool) ClearRateLimited() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rateLimited = make(map[int]bool)
}

func (p *Pool) usableLocked(idx int, now time.Time) bool {
	return !p.rateLimited[idx] && !p.creds[idx].Expired(now)
}

// PoolSnapshot is a point-in-time view of the pool.
type PoolSnapshot struct {
	Size        int
	RateLimited int
	Current     string
}

// Snapshot returns the pool's current state.
func (p *Pool) Snapshot() PoolSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolSnapshot{
		Size:        len(p.creds),
		RateLimited: len(p.rateLimited),
		Current:     p.creds[p.current].Name,
	}
}
