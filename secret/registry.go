package secret

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory builds a Provider from its configuration map.
type ProviderFactory func(cfg map[string]any) (Provider, error)

// Registry maps provider names to factories so configuration can name
// providers without importing their packages.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry returns an empty registry. Call RegisterBuiltins to add
// the env and file providers.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// Register adds a factory under name. Registering the same name twice
// is an error.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("secret: provider name is required")
	}
	if factory == nil {
		return fmt.Errorf("secret: provider %q has a nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("secret: provider %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates the named provider with cfg.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("secret: provider name is required")
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("secret: provider %q is not registered (have %s)",
			name, strings.Join(r.List(), ", "))
	}
	return factory(cfg)
}

// List returns the registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the process-wide registry. Programs that configure
// providers by name typically call RegisterBuiltins(DefaultRegistry)
// once at startup.
var DefaultRegistry = NewRegistry()
