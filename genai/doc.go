// Package genai is the generative-text API client used by the book
// generators.
//
// The Client layers two local policies beneath the resilience facade:
// jittered exponential backoff for transient transport errors, and
// credential rotation for rate-limit errors. Rotation never consumes a
// retry slot; a rate-limited key is set aside until the whole pool is
// exhausted, at which point the set is cleared once before the call
// surfaces a terminal error.
//
// ResilientClient wraps a Client with response caching, facade-mediated
// execution, and an offline fallback that serves cached responses while
// the network is down.
package genai
