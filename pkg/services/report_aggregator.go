package services

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/offerwell/intent-bench/pkg/apperrors"
	"github.com/offerwell/intent-bench/pkg/models"
)

// ReportMeta identifies the run a report describes.
type ReportMeta struct {
	RunID      uuid.UUID
	SuiteName  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// BuildReport folds trials into the filters pivot, the latency pivot and the
// leaderboard. Pivot rows and columns, and leaderboard rows, follow first appearance
// in trials. A repeated (model, query) pair fails with apperrors.ErrDuplicateTrial.
func BuildReport(trials []models.Trial, meta ReportMeta) (*models.Report, error) {
	report := &models.Report{
		RunID:        meta.RunID,
		SuiteName:    meta.SuiteName,
		StartedAt:    meta.StartedAt,
		FinishedAt:   meta.FinishedAt,
		Trials:       make([]models.Trial, len(trials)),
		Queries:      []string{},
		Models:       []string{},
		FilterPivot:  make(map[models.TrialKey]string, len(trials)),
		LatencyPivot: make(map[models.TrialKey]float64, len(trials)),
		Leaderboard:  []models.ModelSummary{},
	}
	copy(report.Trials, trials)

	seenQuery := make(map[string]bool)
	summaryIndex := make(map[string]int)
	latencySum := make(map[string]float64)

	for i := range trials {
		t := &trials[i]
		key := models.TrialKey{Model: t.Model, Query: t.Query}
		if _, dup := report.FilterPivot[key]; dup {
			return nil, fmt.Errorf("%w: model %q, query %q", apperrors.ErrDuplicateTrial, t.Model, t.Query)
		}
		report.FilterPivot[key] = t.FiltersCell()
		report.LatencyPivot[key] = t.LatencyMs

		if !seenQuery[t.Query] {
			seenQuery[t.Query] = true
			report.Queries = append(report.Queries, t.Query)
		}

		idx, ok := summaryIndex[t.Model]
		if !ok {
			idx = len(report.Leaderboard)
			summaryIndex[t.Model] = idx
			report.Models = append(report.Models, t.Model)
			report.Leaderboard = append(report.Leaderboard, models.ModelSummary{
				Model:        t.Model,
				MinLatencyMs: t.LatencyMs,
				MaxLatencyMs: t.LatencyMs,
			})
		}

		summary := &report.Leaderboard[idx]
		summary.Trials++
		if t.Succeeded() {
			summary.Successes++
		}
		summary.MinLatencyMs = math.Min(summary.MinLatencyMs, t.LatencyMs)
		summary.MaxLatencyMs = math.Max(summary.MaxLatencyMs, t.LatencyMs)
		latencySum[t.Model] += t.LatencyMs
	}

	for i := range report.Leaderboard {
		s := &report.Leaderboard[i]
		s.MeanLatencyMs = latencySum[s.Model] / float64(s.Trials)
	}

	return report, nil
}
