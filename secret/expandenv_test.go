package secret

import (
	"strings"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("NOVELFORGE_TEST_KEY", "sk-live")

	got, err := ExpandEnvStrict("Bearer ${NOVELFORGE_TEST_KEY}")
	if err != nil {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
	if got != "Bearer sk-live" {
		t.Errorf("ExpandEnvStrict() = %q, want %q", got, "Bearer sk-live")
	}
}

func TestExpandEnvStrict_MissingVariableErrors(t *testing.T) {
	_, err := ExpandEnvStrict("${NOVELFORGE_TEST_DEFINITELY_UNSET} and ${NOVELFORGE_TEST_ALSO_UNSET}")
	if err == nil {
		t.Fatal("expected error for unset variables")
	}
	// Both names are reported, sorted.
	if !strings.Contains(err.Error(), "NOVELFORGE_TEST_ALSO_UNSET, NOVELFORGE_TEST_DEFINITELY_UNSET") {
		t.Errorf("error = %v, want both missing names listed", err)
	}
}

func TestExpandEnvStrict_DollarEscape(t *testing.T) {
	got, err := ExpandEnvStrict("cost is $$5")
	if err != nil {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
	if got != "cost is $5" {
		t.Errorf("ExpandEnvStrict() = %q, want a literal dollar", got)
	}
}
