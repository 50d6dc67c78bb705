// Package cache stores generated responses keyed by model, prompt, and
// generation parameters.
//
// It provides a Cache interface with an LRU-bounded memory backend and a
// Redis backend for sharing the cache across generator processes, plus
// SHA-256-based key derivation and TTL policies.
package cache
