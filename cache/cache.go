package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength bounds cache key size. Keys are hashes plus a short
// prefix, so anything longer signals a keyer bug.
const MaxKeyLength = 512

var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Cache stores serialized generated responses keyed by prompt hash.
//
// Implementations must be safe for concurrent use. Get never errors: a
// backend failure is reported as a miss, so a broken cache degrades to
// regeneration rather than failing the request.
type Cache interface {
	// Get retrieves a cached value, or (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value for ttl. A zero or negative ttl stores nothing.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects keys that are empty, oversized, or carry line
// breaks (which break line-oriented backends and logs).
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}
