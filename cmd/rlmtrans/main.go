// Command rlmtrans is the main entry point for the translation engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/tastycandy/rlmtrans/internal/chunk"
	"github.com/tastycandy/rlmtrans/internal/config"
	"github.com/tastycandy/rlmtrans/internal/glossary"
	"github.com/tastycandy/rlmtrans/internal/health"
	"github.com/tastycandy/rlmtrans/internal/input"
	"github.com/tastycandy/rlmtrans/internal/observe"
	"github.com/tastycandy/rlmtrans/internal/orchestrator"
	"github.com/tastycandy/rlmtrans/internal/preset"
	"github.com/tastycandy/rlmtrans/internal/resilience"
	"github.com/tastycandy/rlmtrans/internal/state"
	"github.com/tastycandy/rlmtrans/internal/verifier"
	"github.com/tastycandy/rlmtrans/pkg/memory"
	"github.com/tastycandy/rlmtrans/pkg/memory/mock"
	"github.com/tastycandy/rlmtrans/pkg/memory/postgres"
	"github.com/tastycandy/rlmtrans/pkg/provider/embeddings"
	embollama "github.com/tastycandy/rlmtrans/pkg/provider/embeddings/ollama"
	embopenai "github.com/tastycandy/rlmtrans/pkg/provider/embeddings/openai"
	"github.com/tastycandy/rlmtrans/pkg/provider/llm"
	"github.com/tastycandy/rlmtrans/pkg/provider/llm/anyllm"
	llmopenai "github.com/tastycandy/rlmtrans/pkg/provider/llm/openai"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	inputPath := flag.String("input", "", "path to the source document to translate (required)")
	outputPath := flag.String("out", "", "path to write the translated document (default: stdout)")
	presetOverride := flag.String("preset", "", "document-class preset id, overrides translation.default_preset")
	sessionID := flag.String("session", "", "resume an existing session by id instead of starting a new one")
	listenAddr := flag.String("listen", "", "if set, serve /healthz and /readyz on this address while the run is in progress")
	flag.Parse()

	if *inputPath == "" && *sessionID == "" {
		fmt.Fprintln(os.Stderr, "rlmtrans: -input is required (or -session to resume a prior run)")
		return 1
	}

	// ── Load configuration ───────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "rlmtrans: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "rlmtrans: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("rlmtrans starting", "config", *configPath, "log_level", cfg.Server.LogLevel)

	// ── Observability ────────────────────────────────────────────────────────
	shutdownOtel, err := observe.InitProvider(context.Background(), observe.ProviderConfig{
		ServiceName: "rlmtrans",
	})
	if err != nil {
		slog.Error("failed to initialise observability providers", "err", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(ctx); err != nil {
			slog.Warn("observability shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Provider registry ────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	gateway, embedder, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	if fallback, _ := cfg.Providers.LLM.Options["fallback"].(bool); fallback {
		gateway = wrapWithFallback(gateway, cfg)
	}

	// ── Project memory store (optional) ─────────────────────────────────────
	store, storePinger, err := buildStore(cfg)
	if err != nil {
		slog.Error("failed to build memory store", "err", err)
		return 1
	}

	// ── Presets ──────────────────────────────────────────────────────────────
	presetReg := preset.NewRegistry()
	if cfg.Translation.PresetDir != "" {
		if err := presetReg.LoadDir(cfg.Translation.PresetDir); err != nil {
			slog.Warn("failed to load preset directory", "dir", cfg.Translation.PresetDir, "err", err)
		}
	}

	presetID := cfg.Translation.DefaultPreset
	if *presetOverride != "" {
		presetID = types.Preset(*presetOverride)
	}
	activePreset, err := presetReg.Get(presetID)
	if err != nil {
		slog.Error("unknown preset", "preset", presetID, "err", err)
		return 1
	}

	// ── Health endpoint (optional) ───────────────────────────────────────────
	var healthHandler *health.Handler
	checkers := []health.Checker{}
	if gateway != nil {
		checkers = append(checkers, health.LLMChecker("llm", gateway))
	}
	if embedder != nil {
		checkers = append(checkers, health.EmbeddingsChecker("embeddings", embedder))
	}
	if storePinger != nil {
		checkers = append(checkers, health.StoreChecker("memory", storePinger))
	}
	healthHandler = health.New(checkers...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *listenAddr != "" {
		go serveHealth(ctx, *listenAddr, healthHandler, metrics)
	}

	// ── Glossary manager ─────────────────────────────────────────────────────
	glossaryMgr := glossary.New(glossary.ConflictResolutionRule(cfg.Translation.GlossaryConflictRule))
	if embedder != nil && store != nil {
		if idx, ok := store.(memory.TermIndex); ok {
			glossaryMgr = glossaryMgr.WithSemanticIndex(idx, embedder)
		}
	}

	// ── Build or resume the session ──────────────────────────────────────────
	orchCfg := orchestrator.Config{
		SourceLang: cfg.Translation.SourceLang,
		TargetLang: cfg.Translation.TargetLang,
		MaxRetries: cfg.Translation.MaxRetries,
		Toggles: verifier.Toggles{
			CheckSentence: cfg.Translation.CheckSentenceCompletion,
			CheckLength:   cfg.Translation.CheckLengthBounds,
			ModelAssisted: cfg.Translation.ModelAssistedVerify,
		},
		Observer:  newLoggingObserver(metrics),
		SessionID: *sessionID,
		Store:     store,
	}

	var (
		orch      *orchestrator.Orchestrator
		st        *state.State
		srtCues   []chunk.Cue
		srtChunks []types.Chunk
	)

	if *sessionID != "" && store != nil {
		var resumed bool
		orch, st, resumed, err = orchestrator.Resume(ctx, store, *sessionID, gateway, activePreset, glossaryMgr, orchCfg)
		if err != nil {
			slog.Error("failed to resume session", "session", *sessionID, "err", err)
			return 1
		}
		if resumed {
			slog.Info("resumed session from snapshot", "session", *sessionID)
		} else {
			slog.Info("no snapshot found, starting session fresh", "session", *sessionID)
		}
	} else {
		doc, err := input.ReadFile(*inputPath)
		if err != nil {
			slog.Error("failed to read input document", "path", *inputPath, "err", err)
			return 1
		}
		if doc.Encoding != "utf-8" {
			slog.Info("decoded input with fallback encoding", "encoding", doc.Encoding)
		}
		if cfg.Translation.SourceLang == "" {
			if lang := input.DetectLanguage(doc.Text); lang != "unknown" {
				slog.Info("detected source language", "lang", lang)
				orchCfg.SourceLang = lang
			}
		}

		chunkSize := cfg.Translation.ChunkSize
		if chunkSize <= 0 {
			chunkSize = activePreset.ChunkSize
		}
		chunker := chunk.New(chunk.Config{
			Size:      chunkSize,
			Overlap:   cfg.Translation.ChunkOverlap,
			Strategy:  chunkStrategyFor(presetID, activePreset),
			BatchSize: cfg.Translation.SubtitleBatchSize,
			WarnFunc: func(msg string) {
				slog.Warn("chunker fallback", "msg", msg)
			},
		})

		var chunks []types.Chunk
		if presetID == types.PresetSubtitle && (strings.HasSuffix(*inputPath, ".srt") || chunk.IsSRT(doc.Text)) {
			srtCues = chunk.ParseSRT(doc.Text)
			srtChunks = chunker.ChunkCues(srtCues)
			chunks = srtChunks
			slog.Info("parsed subtitle input", "cues", len(srtCues), "batches", len(chunks))
		} else {
			chunks = chunker.Chunk(doc.Text)
		}

		st = state.New(presetID, chunks, cfg.Translation.SelectionStrategy)
		orch = orchestrator.New(st, gateway, activePreset, glossaryMgr, orchCfg)
	}

	slog.Info("translation run starting")
	result, err := orch.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	if result == nil {
		slog.Error("run returned no result")
		return 1
	}

	if !result.Success {
		slog.Error("translation failed", "message", result.ErrorMessage)
		return 1
	}

	output := result.TranslatedText
	if len(srtCues) > 0 {
		output = chunk.ReassembleSRT(srtCues, srtChunks, st.Export().TranslationHistory)
		result.ChunksCount = len(srtCues)
	}

	if err := writeOutput(*outputPath, output); err != nil {
		slog.Error("failed to write output", "err", err)
		return 1
	}

	slog.Info("translation complete",
		"chunks", result.ChunksCount,
		"preset", result.PresetUsed,
		"cost", result.CostSummary.TotalCost,
	)
	return 0
}

// ── Provider wiring ──────────────────────────────────────────────────────────

// registerBuiltinProviders registers the LLM and embeddings gateway factories
// this binary ships with under the names a config.yaml may reference.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(e config.ProviderEntry) (llm.Gateway, error) {
		return llmopenai.New(e.APIKey, e.Model)
	})
	reg.RegisterLLM("anyllm", func(e config.ProviderEntry) (llm.Gateway, error) {
		return anyllm.New(providerOption(e, "backend", "openai"), e.Model)
	})
	reg.RegisterLLM("ollama", func(e config.ProviderEntry) (llm.Gateway, error) {
		return anyllm.NewOllama(e.Model)
	})
	reg.RegisterLLM("anthropic", func(e config.ProviderEntry) (llm.Gateway, error) {
		return anyllm.NewAnthropic(e.Model)
	})

	reg.RegisterEmbeddings("openai", func(e config.ProviderEntry) (embeddings.Provider, error) {
		return embopenai.New(e.APIKey, e.Model)
	})
	reg.RegisterEmbeddings("ollama", func(e config.ProviderEntry) (embeddings.Provider, error) {
		return embollama.New(e.BaseURL, e.Model)
	})
}

// chunkStrategyFor picks the text-splitting strategy implied by the active
// preset. Patent documents split on claim markers; presets that preserve
// original formatting split on paragraph boundaries; everything else uses
// the default sentence-aware character splitter.
func chunkStrategyFor(id types.Preset, p preset.Preset) types.ChunkStrategy {
	switch id {
	case types.PresetPatent:
		return types.StrategyPatent
	}
	if p.PreserveFormatting {
		return types.StrategyParagraph
	}
	return types.StrategyCharSentence
}

func providerOption(e config.ProviderEntry, key, fallback string) string {
	if v, ok := e.Options[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// buildProviders instantiates the configured LLM gateway and embeddings
// provider. A missing LLM provider name is fatal; embeddings are optional
// (near-duplicate glossary detection simply falls back to Jaro-Winkler
// alone when unset).
func buildProviders(cfg *config.Config, reg *config.Registry) (llm.Gateway, embeddings.Provider, error) {
	var gateway llm.Gateway
	var embedder embeddings.Provider

	if name := cfg.Providers.LLM.Name; name != "" {
		g, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return nil, nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		gateway = g
		slog.Info("provider created", "kind", "llm", "name", name)
	} else {
		return nil, nil, errors.New("providers.llm.name must be set")
	}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		e, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("embeddings provider not registered — semantic glossary matching disabled", "name", name)
		} else if err != nil {
			return nil, nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		} else {
			embedder = e
			slog.Info("provider created", "kind", "embeddings", "name", name)
		}
	}

	return gateway, embedder, nil
}

// wrapWithFallback layers an [resilience.LLMFallback] in front of gateway.
// Only the configured gateway is registered, so a failed call is not retried
// on another backend; after three consecutive failures its circuit breaker
// opens and TRANSLATE calls fail fast until the cool-off elapses.
func wrapWithFallback(gateway llm.Gateway, cfg *config.Config) llm.Gateway {
	fb := resilience.NewLLMFallback(gateway, cfg.Providers.LLM.Name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{MaxFailures: 3},
	})
	return fb
}

// buildStore constructs the project-memory snapshot store. With no DSN
// configured, an in-memory mock is used so -session resumption still works
// within a single process lifetime (e.g. for local testing).
func buildStore(cfg *config.Config) (memory.StateStore, health.Pinger, error) {
	if cfg.Memory.PostgresDSN == "" {
		return mock.NewStore(), nil, nil
	}
	store, err := postgres.NewStore(context.Background(), cfg.Memory.PostgresDSN, cfg.Memory.EmbeddingDimensions)
	if err != nil {
		return nil, nil, fmt.Errorf("connect memory store: %w", err)
	}
	return store, store, nil
}

// writeOutput writes text to path, or to stdout when path is empty.
func writeOutput(path, text string) error {
	if path == "" {
		_, err := fmt.Println(text)
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

// serveHealth mounts the health handler on mux and serves it until ctx is
// cancelled.
func serveHealth(ctx context.Context, addr string, h *health.Handler, m *observe.Metrics) {
	mux := http.NewServeMux()
	h.Register(mux)
	srv := &http.Server{Addr: addr, Handler: observe.Middleware(m)(mux)}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("health endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("health server error", "err", err)
	}
}

// ── Logging ──────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// loggingObserver implements [orchestrator.Observer] by writing structured
// log lines and recording engine metrics. It is the default observer for the
// CLI; a UI-driving caller would supply its own.
type loggingObserver struct {
	metrics *observe.Metrics
}

func newLoggingObserver(m *observe.Metrics) *loggingObserver {
	return &loggingObserver{metrics: m}
}

func (o *loggingObserver) Progress(message string, fraction float64) {
	slog.Info("progress", "message", message, "fraction", fraction)
}

func (o *loggingObserver) Step(name string) {
	slog.Debug("step", "name", name)
}

func (o *loggingObserver) QualityFlags(flags []types.QualityFlag) {
	for _, f := range flags {
		o.metrics.RecordChunkCompleted(context.Background(), string(f))
	}
}

func (o *loggingObserver) CostStats(cost float64, calls int, chunks int) {
	slog.Debug("cost stats", "cost", cost, "calls", calls, "chunks", chunks)
}

func (o *loggingObserver) Repair(repairType types.RepairType, message string) {
	o.metrics.RecordRepairAttempt(context.Background(), string(repairType))
	slog.Warn("repair", "type", repairType, "message", message)
}
