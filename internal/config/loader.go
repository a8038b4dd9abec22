package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/tastycandy/rlmtrans/pkg/types"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq"},
	"embeddings": {"openai", "ollama"},
}

// ValidSelectionStrategies lists the selection strategies a config may name.
var ValidSelectionStrategies = []types.SelectionStrategy{
	types.SelectionSequential, types.SelectionAdaptive, types.SelectionPriority,
}

// ValidGlossaryConflictRules lists the conflict resolution rules a config
// may name under translation.glossary_conflict_rule.
var ValidGlossaryConflictRules = []string{"preset_first", "document_initial", "majority", "most_recent"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}

	// Embeddings ↔ memory dimensions
	if cfg.Providers.Embeddings.Name != "" && cfg.Memory.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but memory.embedding_dimensions is not set; defaulting to 1536")
		cfg.Memory.EmbeddingDimensions = 1536
	}

	// Memory availability
	if cfg.Memory.PostgresDSN == "" {
		slog.Warn("memory.postgres_dsn is empty; project-memory snapshots will not be persisted across runs")
	}

	// Translation
	if cfg.Translation.TargetLang == "" {
		errs = append(errs, errors.New("translation.target_lang is required"))
	}
	if cfg.Translation.DefaultPreset != "" && !cfg.Translation.DefaultPreset.IsValid() {
		errs = append(errs, fmt.Errorf("translation.default_preset %q is invalid", cfg.Translation.DefaultPreset))
	}
	if cfg.Translation.SelectionStrategy != "" && !slices.Contains(ValidSelectionStrategies, cfg.Translation.SelectionStrategy) {
		errs = append(errs, fmt.Errorf("translation.selection_strategy %q is invalid; valid values: sequential, adaptive, priority", cfg.Translation.SelectionStrategy))
	}
	if cfg.Translation.MaxRetries != nil && *cfg.Translation.MaxRetries < 0 {
		errs = append(errs, errors.New("translation.max_retries must not be negative; omit it for the orchestrator default, or set 0 to disable repairs"))
	}
	if cfg.Translation.ChunkSize < 0 {
		errs = append(errs, errors.New("translation.chunk_size must not be negative"))
	}
	if cfg.Translation.ChunkOverlap < 0 {
		errs = append(errs, errors.New("translation.chunk_overlap must not be negative"))
	}
	if cfg.Translation.GlossaryConflictRule != "" && !slices.Contains(ValidGlossaryConflictRules, cfg.Translation.GlossaryConflictRule) {
		errs = append(errs, fmt.Errorf("translation.glossary_conflict_rule %q is invalid; valid values: %v", cfg.Translation.GlossaryConflictRule, ValidGlossaryConflictRules))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
