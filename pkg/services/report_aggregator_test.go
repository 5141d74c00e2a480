package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offerwell/intent-bench/pkg/apperrors"
	"github.com/offerwell/intent-bench/pkg/models"
)

func successTrial(model, query string, latency float64, filters models.Filters) models.Trial {
	return models.Trial{
		Model:     model,
		Query:     query,
		Status:    models.TrialStatusSuccess,
		LatencyMs: latency,
		Record:    &models.VerifiedRecord{Filters: filters, Description: "d", HasDescription: true},
	}
}

func failedTrial(model, query string, latency float64) models.Trial {
	return models.Trial{
		Model:     model,
		Query:     query,
		Status:    models.TrialStatusFailed,
		LatencyMs: latency,
		Error:     "no record in model output",
	}
}

func TestBuildReport_PivotsAndLeaderboard(t *testing.T) {
	trials := []models.Trial{
		successTrial("qwen", "q1", 100, models.Filters{models.CategoryFeatures: {"Pool"}}),
		failedTrial("qwen", "q2", 300),
		successTrial("llama", "q1", 50, nil),
		successTrial("llama", "q2", 70, models.Filters{models.CategoryMaterial: {}}),
	}
	meta := ReportMeta{
		RunID:      uuid.New(),
		SuiteName:  "suite",
		StartedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		FinishedAt: time.Date(2026, 1, 2, 3, 9, 5, 0, time.UTC),
	}

	report, err := BuildReport(trials, meta)
	require.NoError(t, err)

	assert.Equal(t, meta.RunID, report.RunID)
	assert.Equal(t, "suite", report.SuiteName)
	assert.Equal(t, []string{"q1", "q2"}, report.Queries)
	assert.Equal(t, []string{"qwen", "llama"}, report.Models)
	assert.Equal(t, trials, report.Trials)

	cell, ok := report.FilterCell("qwen", "q1")
	require.True(t, ok)
	assert.Equal(t, `{"features":["Pool"]}`, cell)

	cell, _ = report.FilterCell("qwen", "q2")
	assert.Equal(t, models.ParseErrorMarker, cell)

	cell, _ = report.FilterCell("llama", "q1")
	assert.Equal(t, "{}", cell)

	cell, _ = report.FilterCell("llama", "q2")
	assert.Equal(t, `{"material":[]}`, cell)

	latency, ok := report.LatencyCell("qwen", "q2")
	require.True(t, ok)
	assert.Equal(t, 300.0, latency)

	_, ok = report.FilterCell("gemma", "q1")
	assert.False(t, ok)

	require.Len(t, report.Leaderboard, 2)
	qwen := report.Leaderboard[0]
	assert.Equal(t, "qwen", qwen.Model)
	assert.InDelta(t, 200.0, qwen.MeanLatencyMs, 1e-9)
	assert.Equal(t, 100.0, qwen.MinLatencyMs)
	assert.Equal(t, 300.0, qwen.MaxLatencyMs)
	assert.Equal(t, 1, qwen.Successes)
	assert.Equal(t, 2, qwen.Trials)

	llama := report.Leaderboard[1]
	assert.InDelta(t, 60.0, llama.MeanLatencyMs, 1e-9)
	assert.Equal(t, 2, llama.Successes)
}

func TestBuildReport_DuplicateTrial(t *testing.T) {
	trials := []models.Trial{
		successTrial("qwen", "q1", 10, nil),
		failedTrial("qwen", "q1", 20),
	}

	report, err := BuildReport(trials, ReportMeta{})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateTrial)
	assert.Nil(t, report)
}

func TestBuildReport_Empty(t *testing.T) {
	report, err := BuildReport(nil, ReportMeta{SuiteName: "s"})
	require.NoError(t, err)
	assert.Empty(t, report.Trials)
	assert.Empty(t, report.Queries)
	assert.Empty(t, report.Models)
	assert.Empty(t, report.Leaderboard)
}

func TestBuildReport_QueriesFollowFirstAppearance(t *testing.T) {
	// A model that was skipped for some queries still lets later models add rows.
	trials := []models.Trial{
		successTrial("a", "q2", 1, nil),
		successTrial("b", "q1", 1, nil),
		successTrial("b", "q2", 1, nil),
	}

	report, err := BuildReport(trials, ReportMeta{})
	require.NoError(t, err)
	assert.Equal(t, []string{"q2", "q1"}, report.Queries)

	_, ok := report.FilterCell("a", "q1")
	assert.False(t, ok)
}
