package models

import (
	"time"

	"github.com/google/uuid"
)

// TrialKey identifies a cell in the report pivots.
type TrialKey struct {
	Model string
	Query string
}

// ModelSummary is one leaderboard row.
type ModelSummary struct {
	Model         string  `json:"model"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	Successes     int     `json:"successes"`
	Trials        int     `json:"trials"`
}

// Report is the write-once aggregate over every trial of a run.
type Report struct {
	RunID      uuid.UUID `json:"run_id"`
	SuiteName  string    `json:"suite_name"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Trials in model-major, query-preserving order.
	Trials []Trial `json:"trials"`

	// Row and column order of the pivots.
	Queries []string `json:"queries"`
	Models  []string `json:"models"`

	FilterPivot  map[TrialKey]string  `json:"-"`
	LatencyPivot map[TrialKey]float64 `json:"-"`

	Leaderboard []ModelSummary `json:"leaderboard"`
}

// FilterCell returns the pivot cell and whether the pair was evaluated.
func (r *Report) FilterCell(model, query string) (string, bool) {
	v, ok := r.FilterPivot[TrialKey{Model: model, Query: query}]
	return v, ok
}

// LatencyCell returns the latency pivot cell and whether the pair was evaluated.
func (r *Report) LatencyCell(model, query string) (float64, bool) {
	v, ok := r.LatencyPivot[TrialKey{Model: model, Query: query}]
	return v, ok
}
