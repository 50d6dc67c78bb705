package secret

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider_Resolve(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "sk-test-123")

	p := NewEnvProvider()
	got, err := p.Resolve(context.Background(), "GEMINI_API_KEY")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "sk-test-123" {
		t.Errorf("Resolve() = %q", got)
	}

	if _, err := p.Resolve(context.Background(), "GEMINI_API_KEY_MISSING"); err == nil {
		t.Error("Resolve() of unset variable succeeded")
	}
}

func TestFileProvider_Resolve(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gemini-key"), []byte("sk-from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := NewFileProvider(dir)
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}

	got, err := p.Resolve(context.Background(), "gemini-key")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "sk-from-file" {
		t.Errorf("Resolve() = %q, want trimmed file contents", got)
	}
}

func TestFileProvider_RejectsEscapingRefs(t *testing.T) {
	p, err := NewFileProvider(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}

	for _, ref := range []string{"../etc/passwd", "/etc/passwd"} {
		if _, err := p.Resolve(context.Background(), ref); err == nil {
			t.Errorf("Resolve(%q) succeeded, want rejection", ref)
		}
	}
}

func TestRegisterBuiltins(t *testing.T) {
	reg := NewRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("RegisterBuiltins() error = %v", err)
	}

	if _, err := reg.Create("env", nil); err != nil {
		t.Errorf("Create(env) error = %v", err)
	}
	if _, err := reg.Create("file", map[string]any{"dir": t.TempDir()}); err != nil {
		t.Errorf("Create(file) error = %v", err)
	}
	// file provider requires a directory
	if _, err := reg.Create("file", nil); err == nil {
		t.Error("Create(file) without dir succeeded")
	}
}

func TestResolver_WithEnvProvider(t *testing.T) {
	t.Setenv("NOVELFORGE_KEY_1", "sk-one")

	r := NewResolver(true, NewEnvProvider())
	got, err := r.ResolveValue(context.Background(), "secretref:env:NOVELFORGE_KEY_1")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "sk-one" {
		t.Errorf("ResolveValue() = %q", got)
	}
}
