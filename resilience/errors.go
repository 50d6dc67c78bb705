package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned without attempting the call while the
	// circuit breaker is open. It means the system is protecting itself,
	// not that the call failed.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrNetworkUnavailable is returned after transient-error retries are
	// exhausted.
	ErrNetworkUnavailable = errors.New("resilience: network unavailable")

	// ErrCredentialsExhausted is returned when every credential in the
	// pool is rate limited and one clear-and-retry pass did not help.
	ErrCredentialsExhausted = errors.New("resilience: all credentials exhausted")

	// ErrWaitTimeout is returned when a caller-side wait elapses before
	// the queued request resolves. The request may still complete in the
	// background; the caller can safely retry later.
	ErrWaitTimeout = errors.New("resilience: wait timed out")

	// ErrRateLimited is returned when the pacer rejects a call.
	ErrRateLimited = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")
)
