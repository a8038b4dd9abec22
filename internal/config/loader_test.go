package config_test

import (
	"strings"
	"testing"

	"github.com/tastycandy/rlmtrans/internal/config"
)

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
translation:
  max_retries: -2
  selection_strategy: random
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "providers.llm.name") {
		t.Errorf("error should mention providers.llm.name, got: %v", err)
	}
	if !strings.Contains(errStr, "target_lang") {
		t.Errorf("error should mention target_lang, got: %v", err)
	}
	if !strings.Contains(errStr, "max_retries") {
		t.Errorf("error should mention max_retries, got: %v", err)
	}
	if !strings.Contains(errStr, "selection_strategy") {
		t.Errorf("error should mention selection_strategy, got: %v", err)
	}
}

func TestValidate_UnknownProviderNameWarnsNotErrors(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: some-custom-gateway
translation:
  target_lang: German
`
	// An unrecognised provider name only produces a log warning, not a
	// validation error — third-party gateways registered at runtime are
	// not known to ValidProviderNames.
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error for unknown-but-plausible provider name: %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	llmNames := config.ValidProviderNames["llm"]
	found := false
	for _, n := range llmNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"llm\"] should contain \"openai\"")
	}
}

func TestValidSelectionStrategiesSanity(t *testing.T) {
	t.Parallel()
	if len(config.ValidSelectionStrategies) != 3 {
		t.Fatalf("ValidSelectionStrategies = %v, want 3 entries", config.ValidSelectionStrategies)
	}
}
