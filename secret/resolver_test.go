package secret

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	name    string
	values  map[string]string
	resolve func(ref string) (string, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.resolve != nil {
		return s.resolve(ref)
	}
	return s.values[ref], nil
}

func (s *stubProvider) Close() error { return nil }

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		value        string
		provider, ref string
		ok           bool
	}{
		{"secretref:env:GEMINI_API_KEY", "env", "GEMINI_API_KEY", true},
		{"secretref:file:gemini-token", "file", "gemini-token", true},
		{"sk-plain-value", "", "", false},
		{"secretref:env:", "", "", false},
		{"secretref::ref", "", "", false},
	}
	for _, tt := range tests {
		provider, ref, ok := ParseSecretRef(tt.value)
		if provider != tt.provider || ref != tt.ref || ok != tt.ok {
			t.Errorf("ParseSecretRef(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.value, provider, ref, ok, tt.provider, tt.ref, tt.ok)
		}
	}
}

func TestResolver_FullSecretRef(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"primary": "sk-one"}})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:primary")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "sk-one" {
		t.Errorf("ResolveValue() = %q, want %q", got, "sk-one")
	}
}

func TestResolver_InlineSecretRef(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"token": "abc123"}})

	got, err := r.ResolveValue(context.Background(), "Bearer secretref:stub:token")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "Bearer abc123" {
		t.Errorf("ResolveValue() = %q, want the inline ref replaced", got)
	}
}

func TestResolver_StrictRejectsEmptyValues(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{}})

	if _, err := r.ResolveValue(context.Background(), "secretref:stub:absent"); err == nil {
		t.Error("ResolveValue() returned an empty secret under strict mode")
	}
}

func TestResolver_UnknownProviderErrors(t *testing.T) {
	r := NewResolver(true)

	if _, err := r.ResolveValue(context.Background(), "secretref:vault:key"); err == nil {
		t.Error("ResolveValue() succeeded with no registered provider")
	}
}

func TestResolver_SliceAndMap(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"primary": "sk-one"}})

	slice, err := r.ResolveSlice(context.Background(), []string{"plain", "secretref:stub:primary"})
	if err != nil {
		t.Fatalf("ResolveSlice() error = %v", err)
	}
	if slice[0] != "plain" || slice[1] != "sk-one" {
		t.Errorf("ResolveSlice() = %v", slice)
	}

	m, err := r.ResolveMap(context.Background(), map[string]string{"auth": "Bearer secretref:stub:primary"})
	if err != nil {
		t.Fatalf("ResolveMap() error = %v", err)
	}
	if m["auth"] != "Bearer sk-one" {
		t.Errorf("ResolveMap()[auth] = %q", m["auth"])
	}
}

func TestResolver_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("backend unreachable")
	r := NewResolver(true, &stubProvider{name: "stub", resolve: func(ref string) (string, error) {
		return "", boom
	}})

	if _, err := r.ResolveValue(context.Background(), "secretref:stub:any"); !errors.Is(err, boom) {
		t.Errorf("ResolveValue() error = %v, want the provider error", err)
	}
}
