package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Kind is the error taxonomy the retry and rotation policies act on.
type Kind int

const (
	// KindTerminal is an error the resilience layer passes through
	// unmodified: a programming error or a non-retryable API response.
	KindTerminal Kind = iota
	// KindTransient is a network-class error worth retrying with backoff.
	KindTransient
	// KindRateLimit is a quota/rate-limit error; it triggers credential
	// rotation, not a retry-slot decrement.
	KindRateLimit
	// KindCircuitOpen means the breaker refused the call.
	KindCircuitOpen
	// KindTimeout means a caller-side wait elapsed.
	KindTimeout
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTerminal:
		return "terminal"
	case KindTransient:
		return "transient"
	case KindRateLimit:
		return "rate-limit"
	case KindCircuitOpen:
		return "circuit-open"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Classifier lets wrapped clients report a structured error kind instead
// of relying on message matching. Errors implementing it are trusted over
// the substring fallback.
type Classifier interface {
	error
	ErrorKind() Kind
}

// Substrings that identify rate-limit responses when the upstream SDK
// only surfaces strings. Matching is case-insensitive.
var rateLimitMarkers = []string{
	"quota exceeded",
	"rate limit",
	"resource exhausted",
	"resource_exhausted",
	"too many requests",
	"429",
}

// Substrings that identify transient transport failures.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"tls handshake timeout",
	"temporary failure",
	"service unavailable",
	"502",
	"503",
	"504",
}

// Classify maps err onto the taxonomy. Typed errors win: sentinel errors
// from this package, Classifier implementations, net and DNS error types,
// and context deadlines are all recognized before the message fallback.
func Classify(err error) Kind {
	if err == nil {
		return KindTerminal
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, ErrWaitTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrRateLimited):
		return KindRateLimit
	case errors.Is(err, ErrNetworkUnavailable):
		return KindTransient
	case errors.Is(err, ErrCredentialsExhausted):
		return KindTerminal
	}

	var classified Classifier
	if errors.As(err, &classified) {
		return classified.ErrorKind()
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	// Last-resort adapter: match the upstream message text.
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return KindRateLimit
		}
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return KindTransient
		}
	}

	return KindTerminal
}
