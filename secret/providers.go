package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvProvider resolves references as environment variable names.
type EnvProvider struct{}

// NewEnvProvider creates a provider reading from the process environment.
func NewEnvProvider() *EnvProvider { return &EnvProvider{} }

// Name implements Provider.
func (p *EnvProvider) Name() string { return "env" }

// Resolve returns the value of the environment variable named by ref.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("environment variable %q is not set", ref)
	}
	return value, nil
}

// Close implements Provider.
func (p *EnvProvider) Close() error { return nil }

// FileProvider resolves references as file names under a base directory,
// the layout used by container secret mounts.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider reading secrets from files in dir.
func NewFileProvider(dir string) (*FileProvider, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("secret file directory is required")
	}
	return &FileProvider{dir: dir}, nil
}

// Name implements Provider.
func (p *FileProvider) Name() string { return "file" }

// Resolve reads the file named by ref, with surrounding whitespace
// trimmed. The ref must not escape the base directory.
func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	if strings.Contains(ref, "..") || filepath.IsAbs(ref) {
		return "", fmt.Errorf("secret file ref %q must be a relative name", ref)
	}
	data, err := os.ReadFile(filepath.Join(p.dir, ref))
	if err != nil {
		return "", fmt.Errorf("reading secret file %q: %w", ref, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Close implements Provider.
func (p *FileProvider) Close() error { return nil }

// RegisterBuiltins adds the env and file provider factories to reg. The
// file factory reads its base directory from the "dir" config key.
func RegisterBuiltins(reg *Registry) error {
	if err := reg.Register("env", func(cfg map[string]any) (Provider, error) {
		return NewEnvProvider(), nil
	}); err != nil {
		return err
	}
	return reg.Register("file", func(cfg map[string]any) (Provider, error) {
		dir, _ := cfg["dir"].(string)
		return NewFileProvider(dir)
	})
}

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
)
