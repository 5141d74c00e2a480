package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/offerwell/intent-bench/pkg/config"
	"github.com/offerwell/intent-bench/pkg/llm"
	"github.com/offerwell/intent-bench/pkg/logging"
	"github.com/offerwell/intent-bench/pkg/metrics"
	"github.com/offerwell/intent-bench/pkg/prompts"
	"github.com/offerwell/intent-bench/pkg/report"
	"github.com/offerwell/intent-bench/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "intent-bench",
		Short: "Benchmark small language models on real-estate query-to-filter extraction",
		Long: `intent-bench sends every query of a suite to every model of a roster, extracts the
structured filter record from each answer, drops tags the query does not justify,
and writes a spreadsheet comparing logic and latency across models.`,
		Version:      Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if !cmd.Flags().Changed("config") {
				if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
					path = ""
				}
			}
			return run(cmd.Context(), cmd.OutOrStdout(), path, dryRun)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "path to config file (environment only when the default is absent)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the models and queries that would run, then exit")
	return cmd
}

func run(ctx context.Context, out io.Writer, configPath string, dryRun bool) error {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	suite, err := prompts.LoadSuite(cfg.SuitePath)
	if err != nil {
		logger.Error("Failed to load suite", zap.Error(err))
		return err
	}

	roster, err := cfg.Roster(suite.Models)
	if err != nil {
		logger.Error("Invalid model roster", zap.Error(err))
		return err
	}

	if dryRun {
		return writePlan(out, suite, roster)
	}

	router, err := buildRouter(cfg, logger)
	if err != nil {
		logger.Error("Failed to configure model backends", zap.Error(err))
		return err
	}
	var provider llm.ModelProvider = router
	if cfg.TranscriptDir != "" {
		writer, err := llm.NewTranscriptWriter(cfg.TranscriptDir, logger)
		if err != nil {
			logger.Error("Failed to prepare transcript directory", zap.Error(err))
			return err
		}
		provider = llm.NewRecordingProvider(router, writer)
		logger.Info("Recording transcripts", zap.String("dir", writer.Dir()))
	}

	recorder := metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		metricsServer := metrics.NewServer(cfg.MetricsAddr, recorder, logger)
		if err := metricsServer.Start(); err != nil {
			logger.Error("Failed to start metrics server", zap.Error(err))
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	runID := uuid.New()
	logger = logger.With(zap.String("run_id", runID.String()))
	logger.Info("Starting intent-bench",
		zap.String("version", cfg.Version),
		zap.String("suite", suite.Name),
		zap.Int("models", len(roster)),
		zap.Int("queries", len(suite.Queries)),
		zap.String("output", cfg.OutputPath),
		zap.String("ollama", logging.SanitizeURL(cfg.Ollama.BaseURL)),
		zap.String("openai", logging.SanitizeURL(cfg.OpenAI.BaseURL)))

	poolConfig := llm.DefaultWorkerPoolConfig()
	poolConfig.MaxConcurrent = cfg.Concurrency
	workerPool := llm.NewWorkerPool(poolConfig, logger)
	benchmark := services.NewBenchmarkService(provider, suite, workerPool, recorder, services.BenchmarkConfig{
		MaxTokens:      cfg.MaxTokens,
		RawOutputLimit: cfg.RawOutputLimit,
		ProgressEvery:  cfg.ProgressEvery,
		LoadRetry:      cfg.LoadRetryConfig(),
	}, logger)

	startedAt := time.Now()
	runCtx := llm.WithContext(ctx, map[string]any{"run_id": runID.String()})
	trials, runErr := benchmark.Run(runCtx, roster, nil)
	finishedAt := time.Now()
	if runErr != nil && ctx.Err() == nil {
		logger.Error("Benchmark refused to start", zap.Error(runErr))
		return runErr
	}

	rep, err := services.BuildReport(trials, services.ReportMeta{
		RunID:      runID,
		SuiteName:  suite.Name,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	})
	if err != nil {
		logger.Error("Failed to aggregate results", zap.Error(err))
		return err
	}

	// A cancelled run still writes what it completed.
	sheets := report.SheetNames{
		Raw:         cfg.Sheets.Raw,
		Comparison:  cfg.Sheets.Comparison,
		Latency:     cfg.Sheets.Latency,
		Leaderboard: cfg.Sheets.Leaderboard,
		Run:         cfg.Sheets.Run,
	}
	if err := report.NewXLSXWriter(sheets, logger).Write(rep, cfg.OutputPath); err != nil {
		logger.Error("Failed to write report", zap.Error(err))
		return err
	}

	for _, s := range rep.Leaderboard {
		logger.Info("Leaderboard",
			zap.String("model", s.Model),
			zap.Int("successes", s.Successes),
			zap.Int("trials", s.Trials),
			zap.Float64("mean_latency_ms", s.MeanLatencyMs))
	}

	if runErr != nil {
		logger.Warn("Benchmark interrupted", zap.Error(runErr), zap.Int("trials", len(trials)))
		return fmt.Errorf("benchmark interrupted: %w", runErr)
	}
	return nil
}

// buildRouter registers one provider per configured backend. Anthropic is only
// available when an API key is set.
func buildRouter(cfg *config.Config, logger *zap.Logger) (*llm.Router, error) {
	router := llm.NewRouter(logger)

	ollama, err := llm.NewOllamaProvider(llm.OllamaConfig{
		BaseURL:     cfg.Ollama.BaseURL,
		PullMissing: cfg.Ollama.PullMissing,
		Timeout:     cfg.Ollama.Timeout(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("ollama backend: %w", err)
	}
	router.Register(llm.BackendOllama, ollama)

	openai, err := llm.NewOpenAIProvider(&llm.Config{
		Endpoint: cfg.OpenAI.BaseURL,
		APIKey:   cfg.OpenAI.APIKey,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("openai backend: %w", err)
	}
	router.Register(llm.BackendOpenAI, openai)

	if cfg.Anthropic.APIKey != "" {
		anthropic, err := llm.NewAnthropicProvider(&llm.Config{
			Endpoint: cfg.Anthropic.BaseURL,
			APIKey:   cfg.Anthropic.APIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("anthropic backend: %w", err)
		}
		router.Register(llm.BackendAnthropic, anthropic)
	}

	return router, nil
}

// writePlan prints the cross product a run would evaluate.
func writePlan(out io.Writer, suite *prompts.Suite, roster []llm.ModelSpec) error {
	if _, err := fmt.Fprintf(out, "Suite %s: %d models x %d queries = %d trials\n",
		suite.Name, len(roster), len(suite.Queries), len(roster)*len(suite.Queries)); err != nil {
		return err
	}
	for _, m := range roster {
		backend := m.Backend
		if backend == "" {
			backend = llm.BackendOllama
		}
		template := m.Template
		if template == "" {
			template = llm.TemplateChatML
		}
		if _, err := fmt.Fprintf(out, "  %s (%s, backend=%s, template=%s)\n", m.ShortName(), m.ID, backend, template); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(out, "Queries:"); err != nil {
		return err
	}
	for i, q := range suite.Queries {
		if _, err := fmt.Fprintf(out, "  %2d. %s\n", i+1, q); err != nil {
			return err
		}
	}
	return nil
}
