package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/offerwell/intent-bench/pkg/apperrors"
	"github.com/offerwell/intent-bench/pkg/llm"
	"github.com/offerwell/intent-bench/pkg/logging"
	"github.com/offerwell/intent-bench/pkg/models"
	"github.com/offerwell/intent-bench/pkg/prompts"
	"github.com/offerwell/intent-bench/pkg/retry"
)

// ProgressCallback reports per-model progress. message is human-readable.
type ProgressCallback func(completed, total int, message string)

// TrialObserver receives run events for instrumentation. metrics.Recorder implements it.
type TrialObserver interface {
	ObserveTrial(trial *models.Trial)
	ObserveModelLoadFailure(model string)
}

// BenchmarkService evaluates every query of a suite against a roster of models.
type BenchmarkService interface {
	// Run produces one trial per (model, query) pair in model-major order, queries in
	// suite order. Models that cannot be loaded are skipped. A roster whose entries share
	// an ID or display name is refused before any model is loaded. Otherwise the only
	// error returned is the context's, together with the trials completed before
	// cancellation. A trial whose generation was cut short by cancellation is dropped.
	Run(ctx context.Context, specs []llm.ModelSpec, progress ProgressCallback) ([]models.Trial, error)
}

// BenchmarkConfig holds the per-run knobs.
type BenchmarkConfig struct {
	MaxTokens      int           // Generation budget per trial
	RawOutputLimit int           // Characters of raw output kept per trial; <= 0 keeps everything
	ProgressEvery  int           // Log progress every N completed queries; <= 0 disables
	LoadRetry      *retry.Config // Backoff for transient load failures; nil uses retry defaults
}

// DefaultBenchmarkConfig returns the production settings.
func DefaultBenchmarkConfig() BenchmarkConfig {
	return BenchmarkConfig{
		MaxTokens:      500,
		RawOutputLimit: 500,
		ProgressEvery:  15,
	}
}

type benchmarkService struct {
	provider     llm.ModelProvider
	suite        *prompts.Suite
	systemPrompt string
	verifier     *ClaimVerifier
	workerPool   *llm.WorkerPool
	observer     TrialObserver
	config       BenchmarkConfig
	logger       *zap.Logger
}

// NewBenchmarkService creates the evaluation orchestrator. observer may be nil.
func NewBenchmarkService(
	provider llm.ModelProvider,
	suite *prompts.Suite,
	workerPool *llm.WorkerPool,
	observer TrialObserver,
	config BenchmarkConfig,
	logger *zap.Logger,
) BenchmarkService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &benchmarkService{
		provider:     provider,
		suite:        suite,
		systemPrompt: prompts.BuildSystemPrompt(suite),
		verifier:     NewClaimVerifier(suite.SynonymTable()),
		workerPool:   workerPool,
		observer:     observer,
		config:       config,
		logger:       logger.Named("benchmark"),
	}
}

var _ BenchmarkService = (*benchmarkService)(nil)

func (s *benchmarkService) Run(ctx context.Context, specs []llm.ModelSpec, progress ProgressCallback) ([]models.Trial, error) {
	if err := llm.CheckRoster(specs); err != nil {
		return nil, err
	}
	results := NewResultSet(len(specs) * len(s.suite.Queries))

	s.logger.Info("Starting benchmark",
		zap.String("suite", s.suite.Name),
		zap.Int("models", len(specs)),
		zap.Int("queries", len(s.suite.Queries)),
		zap.Int("concurrency", s.workerPool.MaxConcurrent()))

	for modelIndex, spec := range specs {
		if ctx.Err() != nil {
			break
		}

		model, err := s.loadModel(ctx, spec)
		if err != nil {
			s.logger.Error("Failed to load model, skipping its queries",
				zap.String("model", spec.ID),
				zap.String("error", logging.SanitizeError(err)))
			s.observer.ObserveModelLoadFailure(spec.ShortName())
			continue
		}

		s.runModel(ctx, modelIndex, spec, model, results, progress)
		s.releaseModel(spec, model)
	}

	trials := results.Trials()
	s.logger.Info("Benchmark finished", zap.Int("trials", len(trials)))
	return trials, ctx.Err()
}

// loadModel retries transient acquisition failures only.
func (s *benchmarkService) loadModel(ctx context.Context, spec llm.ModelSpec) (llm.Model, error) {
	s.logger.Info("Loading model", zap.String("model", spec.ShortName()), zap.String("id", spec.ID))

	model, err := retry.DoIfRetryableWithResult(ctx, s.config.LoadRetry, func() (llm.Model, error) {
		return s.provider.Load(ctx, spec)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrModelUnavailable, spec.ID, err)
	}
	return model, nil
}

func (s *benchmarkService) releaseModel(spec llm.ModelSpec, model llm.Model) {
	releaser, ok := model.(llm.Releaser)
	if !ok {
		return
	}
	// Release even when the run was cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := releaser.Release(ctx); err != nil {
		s.logger.Warn("Failed to release model",
			zap.String("model", spec.ID),
			zap.String("error", logging.SanitizeError(err)))
	}
}

// runModel evaluates every query against one loaded model.
func (s *benchmarkService) runModel(
	ctx context.Context,
	modelIndex int,
	spec llm.ModelSpec,
	model llm.Model,
	results *ResultSet,
	progress ProgressCallback,
) {
	name := spec.ShortName()

	workItems := make([]llm.WorkItem[models.Trial], 0, len(s.suite.Queries))
	for queryIndex, query := range s.suite.Queries {
		queryIndex, query := queryIndex, query
		workItems = append(workItems, llm.WorkItem[models.Trial]{
			ID: fmt.Sprintf("%s#%d", name, queryIndex),
			Execute: func(ctx context.Context) (models.Trial, error) {
				trial, err := s.runTrial(ctx, modelIndex, queryIndex, spec, model, query)
				if err != nil {
					return trial, err
				}
				s.observer.ObserveTrial(&trial)
				return trial, nil
			},
		})
	}

	trialResults := llm.Process(ctx, s.workerPool, workItems, func(completed, total int) {
		if s.config.ProgressEvery > 0 && (completed%s.config.ProgressEvery == 0 || completed == total) {
			s.logger.Info("Progress",
				zap.String("model", name),
				zap.Int("completed", completed),
				zap.Int("total", total))
		}
		if progress != nil {
			progress(completed, total, fmt.Sprintf("%s: %d/%d queries completed", name, completed, total))
		}
	})

	for _, r := range trialResults {
		if r.Err != nil {
			// Never started or interrupted: the run was cancelled.
			continue
		}
		results.Append(r.Result)
	}
}

// runTrial evaluates one (model, query) pair. Every failure is recorded on the trial,
// except a generation aborted by cancellation, which returns the context's error.
func (s *benchmarkService) runTrial(
	ctx context.Context,
	modelIndex, queryIndex int,
	spec llm.ModelSpec,
	model llm.Model,
	query string,
) (models.Trial, error) {
	trial := models.Trial{
		ModelIndex: modelIndex,
		QueryIndex: queryIndex,
		Model:      spec.ShortName(),
		ModelID:    spec.ID,
		Query:      query,
		Status:     models.TrialStatusFailed,
		StartedAt:  time.Now(),
	}

	prompt, usedFallback := s.composePrompt(spec, model, query)
	trial.UsedFallbackTemplate = usedFallback

	start := time.Now()
	raw, err := model.Generate(llm.WithTrialContext(ctx, trial.Model, queryIndex), prompt, s.config.MaxTokens)
	trial.LatencyMs = roundMillis(time.Since(start))
	trial.RawOutput = logging.TruncateRunes(raw, s.config.RawOutputLimit)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return trial, ctxErr
		}
		trial.Error = logging.SanitizeError(err)
		s.logger.Warn("Generation failed",
			zap.String("model", trial.Model),
			zap.Int("query_index", queryIndex),
			zap.String("error", trial.Error))
		return trial, nil
	}

	candidate, err := ExtractRecord(raw)
	switch {
	case err != nil:
		trial.Error = err.Error()
	case candidate.IsEmpty():
		trial.Error = fmt.Sprintf("%v: empty object", apperrors.ErrNoRecord)
	default:
		trial.Record = s.verifier.Verify(query, candidate)
		trial.Status = models.TrialStatusSuccess
	}

	if trial.Succeeded() {
		s.logger.Debug("Trial completed",
			zap.String("model", trial.Model),
			zap.Int("query_index", queryIndex),
			zap.Float64("latency_ms", trial.LatencyMs),
			zap.Int("dropped_tags", trial.Record.DropCount()))
	} else {
		s.logger.Warn("Trial failed",
			zap.String("model", trial.Model),
			zap.Int("query_index", queryIndex),
			zap.Float64("latency_ms", trial.LatencyMs),
			zap.String("error", trial.Error))
	}
	return trial, nil
}

// composePrompt renders system instructions plus the user turn. A template that
// refuses the turns gets the instructions folded into a single user turn instead.
func (s *benchmarkService) composePrompt(spec llm.ModelSpec, model llm.Model, query string) (llm.Prompt, bool) {
	turns := []llm.Turn{
		{Role: llm.RoleSystem, Content: s.systemPrompt},
		{Role: llm.RoleUser, Content: s.suite.UserTurn(query)},
	}
	prompt, err := model.Format(turns)
	if err == nil {
		return prompt, false
	}
	if !errors.Is(err, apperrors.ErrSystemRoleUnsupported) {
		s.logger.Debug("Chat template failed, folding instructions into user turn",
			zap.String("model", spec.ID),
			zap.Error(err))
	}

	folded := s.suite.FallbackUserTurn(query)
	prompt, err = model.Format([]llm.Turn{{Role: llm.RoleUser, Content: folded}})
	if err != nil {
		return llm.PlainUserPrompt(folded), true
	}
	return prompt, true
}

// roundMillis converts d to milliseconds rounded to two decimal places.
func roundMillis(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

type nopObserver struct{}

func (nopObserver) ObserveTrial(*models.Trial)     {}
func (nopObserver) ObserveModelLoadFailure(string) {}
