package secret

import "context"

// Provider turns a reference string into credential material.
//
// Implementations must be safe for concurrent use and must never log
// the resolved value.
type Provider interface {
	// Name is the provider tag used in secretref:<name>:<ref> values.
	Name() string

	// Resolve returns the secret named by ref.
	Resolve(ctx context.Context, ref string) (string, error)

	// Close releases any resources the provider holds.
	Close() error
}
