package config_test

import (
	"testing"

	"github.com/tastycandy/rlmtrans/internal/config"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server:      config.ServerConfig{LogLevel: config.LogInfo},
		Translation: config.TranslationConfig{TargetLang: "German", DefaultPreset: types.PresetTechnical},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if d.TargetLangChanged {
		t.Error("expected TargetLangChanged=false for identical configs")
	}
	if d.DefaultPresetChanged {
		t.Error("expected DefaultPresetChanged=false for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	updated := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, updated)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
}

func TestDiff_TargetLangChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Translation: config.TranslationConfig{TargetLang: "German"}}
	updated := &config.Config{Translation: config.TranslationConfig{TargetLang: "Japanese"}}

	d := config.Diff(old, updated)
	if !d.TargetLangChanged {
		t.Error("expected TargetLangChanged=true")
	}
	if d.NewTargetLang != "Japanese" {
		t.Errorf("expected NewTargetLang=Japanese, got %q", d.NewTargetLang)
	}
}

func TestDiff_DefaultPresetChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Translation: config.TranslationConfig{DefaultPreset: types.PresetGeneral}}
	updated := &config.Config{Translation: config.TranslationConfig{DefaultPreset: types.PresetPatent}}

	d := config.Diff(old, updated)
	if !d.DefaultPresetChanged {
		t.Error("expected DefaultPresetChanged=true")
	}
}

func TestDiff_MaxRetriesChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Translation: config.TranslationConfig{MaxRetries: intp(2)}}
	updated := &config.Config{Translation: config.TranslationConfig{MaxRetries: intp(4)}}

	d := config.Diff(old, updated)
	if !d.MaxRetriesChanged {
		t.Error("expected MaxRetriesChanged=true")
	}
}

func TestDiff_VerifierTogglesChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Translation: config.TranslationConfig{CheckSentenceCompletion: false}}
	updated := &config.Config{Translation: config.TranslationConfig{CheckSentenceCompletion: true}}

	d := config.Diff(old, updated)
	if !d.VerifierTogglesChanged {
		t.Error("expected VerifierTogglesChanged=true")
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server:      config.ServerConfig{LogLevel: config.LogInfo},
		Translation: config.TranslationConfig{TargetLang: "German", MaxRetries: intp(2)},
	}
	updated := &config.Config{
		Server:      config.ServerConfig{LogLevel: config.LogWarn},
		Translation: config.TranslationConfig{TargetLang: "Japanese", MaxRetries: intp(4)},
	}

	d := config.Diff(old, updated)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if !d.TargetLangChanged {
		t.Error("expected TargetLangChanged=true")
	}
	if !d.MaxRetriesChanged {
		t.Error("expected MaxRetriesChanged=true")
	}
}

func TestDiff_MaxRetriesUnsetVersusExplicitZero(t *testing.T) {
	t.Parallel()
	old := &config.Config{Translation: config.TranslationConfig{}}
	updated := &config.Config{Translation: config.TranslationConfig{MaxRetries: intp(0)}}

	d := config.Diff(old, updated)
	if !d.MaxRetriesChanged {
		t.Error("expected MaxRetriesChanged=true: unset and explicit zero are different budgets")
	}
}

func intp(n int) *int { return &n }
