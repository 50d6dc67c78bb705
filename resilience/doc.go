// Package resilience provides the failure-handling primitives for the
// NovelForge network layer.
//
// The generative-text API that drives book generation is reached over
// networks that drop, flap, and rate-limit. This package supplies the
// building blocks the connection monitor, request queue, and API client
// compose to survive that:
//
//   - Circuit Breaker: fed by connectivity probe results, it trips OPEN
//     after a run of consecutive failures, waits out a recovery timeout,
//     and re-closes only after a run of consecutive trial successes.
//
//   - Backoff: delay schedules for retries. The queue uses the capped
//     power-of-two schedule (min(300, 2^k) seconds); the API client uses
//     jittered exponential backoff.
//
//   - Classification: maps errors into the taxonomy the retry and
//     rotation policies act on (transient, rate-limit, circuit-open,
//     timeout, terminal). Typed errors are inspected first; message
//     substring matching is the fallback adapter for upstream SDKs that
//     only surface strings.
//
//   - Bulkhead: caps concurrent in-flight generative calls.
//
//   - Pacer: token-bucket pacing to stay under provider RPM quotas.
//
// # Usage
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  time.Minute,
//	    SuccessThreshold: 3,
//	})
//
//	// Connection monitor feeds probe outcomes into the breaker.
//	cb.RecordResult(probeOK)
//
//	// The queue processor and facade consult it before doing work.
//	if err := cb.Allow(); err != nil {
//	    return err // resilience.ErrCircuitOpen: fail fast
//	}
package resilience
