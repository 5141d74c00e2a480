// Package metrics exposes benchmark progress as Prometheus metrics.
// Each Recorder owns its own registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/offerwell/intent-bench/pkg/models"
)

const metricsNamespace = "intent_bench"

// Generation latency buckets in seconds.
var latencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Recorder collects per-trial metrics. It implements services.TrialObserver.
type Recorder struct {
	registry *prometheus.Registry

	// TrialsTotal counts trials by model and status (SUCCESS, FAILED).
	TrialsTotal *prometheus.CounterVec

	// TrialLatencySeconds measures generation latency by model, failed trials included.
	TrialLatencySeconds *prometheus.HistogramVec

	// DroppedTagsTotal counts tags removed by claim verification, by model.
	DroppedTagsTotal *prometheus.CounterVec

	// FallbackPromptsTotal counts trials whose instructions were folded into the user turn.
	FallbackPromptsTotal *prometheus.CounterVec

	// ModelLoadFailuresTotal counts models skipped because they could not be loaded.
	ModelLoadFailuresTotal *prometheus.CounterVec
}

// NewRecorder creates a recorder registered on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		TrialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "trials_total",
				Help:      "Total number of trials by model and status",
			},
			[]string{"model", "status"},
		),
		TrialLatencySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "trial_latency_seconds",
				Help:      "Generation latency per trial in seconds",
				Buckets:   latencyBuckets,
			},
			[]string{"model"},
		),
		DroppedTagsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "dropped_tags_total",
				Help:      "Tags removed because the query did not justify them",
			},
			[]string{"model"},
		),
		FallbackPromptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fallback_prompts_total",
				Help:      "Trials rendered without a system turn",
			},
			[]string{"model"},
		),
		ModelLoadFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "model_load_failures_total",
				Help:      "Models skipped because loading failed",
			},
			[]string{"model"},
		),
	}

	r.registry.MustRegister(
		r.TrialsTotal,
		r.TrialLatencySeconds,
		r.DroppedTagsTotal,
		r.FallbackPromptsTotal,
		r.ModelLoadFailuresTotal,
	)
	return r
}

// Registry returns the registry the recorder's collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveTrial records one finished trial.
func (r *Recorder) ObserveTrial(trial *models.Trial) {
	r.TrialsTotal.WithLabelValues(trial.Model, string(trial.Status)).Inc()
	r.TrialLatencySeconds.WithLabelValues(trial.Model).Observe(trial.LatencyMs / 1000)
	if trial.UsedFallbackTemplate {
		r.FallbackPromptsTotal.WithLabelValues(trial.Model).Inc()
	}
	if trial.Record != nil {
		if dropped := trial.Record.DropCount(); dropped > 0 {
			r.DroppedTagsTotal.WithLabelValues(trial.Model).Add(float64(dropped))
		}
	}
}

// ObserveModelLoadFailure records a model skipped at load time.
func (r *Recorder) ObserveModelLoadFailure(model string) {
	r.ModelLoadFailuresTotal.WithLabelValues(model).Inc()
}
