package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/offerwell/intent-bench/pkg/models"
)

func sampleReport() *models.Report {
	trials := []models.Trial{
		{
			Model:     "qwen",
			Query:     "house with a pool",
			Status:    models.TrialStatusSuccess,
			LatencyMs: 120.5,
			RawOutput: `{"filters": {"features": ["Pool"]}}`,
			Record: &models.VerifiedRecord{
				Filters:        models.Filters{models.CategoryFeatures: {"Pool"}},
				Dropped:        models.Filters{models.CategoryFeatures: {"Garage"}},
				Description:    "blue pool",
				HasDescription: true,
			},
		},
		{
			Model:     "qwen",
			Query:     "a quiet street",
			Status:    models.TrialStatusFailed,
			LatencyMs: 80,
			RawOutput: "I cannot help with that.",
			Error:     "no record in model output",
		},
		{
			Model:     "phi",
			Query:     "house with a pool",
			Status:    models.TrialStatusSuccess,
			LatencyMs: 40,
			Record:    &models.VerifiedRecord{},
		},
	}

	return &models.Report{
		RunID:      uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"),
		SuiteName:  "realestate-production",
		StartedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 1, 10, 2, 30, 0, time.UTC),
		Trials:     trials,
		Queries:    []string{"house with a pool", "a quiet street"},
		Models:     []string{"qwen", "phi"},
		FilterPivot: map[models.TrialKey]string{
			{Model: "qwen", Query: "house with a pool"}: trials[0].FiltersCell(),
			{Model: "qwen", Query: "a quiet street"}:    trials[1].FiltersCell(),
			{Model: "phi", Query: "house with a pool"}:  trials[2].FiltersCell(),
		},
		LatencyPivot: map[models.TrialKey]float64{
			{Model: "qwen", Query: "house with a pool"}: 120.5,
			{Model: "qwen", Query: "a quiet street"}:    80,
			{Model: "phi", Query: "house with a pool"}:  40,
		},
		Leaderboard: []models.ModelSummary{
			{Model: "qwen", MeanLatencyMs: 100.25, MinLatencyMs: 80, MaxLatencyMs: 120.5, Successes: 1, Trials: 2},
			{Model: "phi", MeanLatencyMs: 40, MinLatencyMs: 40, MaxLatencyMs: 40, Successes: 1, Trials: 1},
		},
	}
}

func writeSample(t *testing.T, sheets SheetNames) *excelize.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.xlsx")
	require.NoError(t, NewXLSXWriter(sheets, zap.NewNop()).Write(sampleReport(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestXLSXWriter_SheetOrder(t *testing.T) {
	f := writeSample(t, DefaultSheetNames())
	assert.Equal(t, []string{"Raw Data", "Logic Comparison", "Latency Comparison", "Leaderboard", "Run"}, f.GetSheetList())
}

func TestXLSXWriter_CustomSheetNames(t *testing.T) {
	f := writeSample(t, SheetNames{Raw: "Trials", Comparison: "Filters", Latency: "Timing", Leaderboard: "Ranking", Run: "Meta"})
	assert.Equal(t, []string{"Trials", "Filters", "Timing", "Ranking", "Meta"}, f.GetSheetList())
}

func TestXLSXWriter_RawData(t *testing.T) {
	f := writeSample(t, DefaultSheetNames())

	rows, err := f.GetRows("Raw Data")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, rawHeaders, rows[0])
	assert.Equal(t, []string{
		"qwen", "house with a pool", "SUCCESS", `{"features":["Pool"]}`, "blue pool", "120.5",
		`{"filters": {"features": ["Pool"]}}`, "1",
	}, rows[1])
	assert.Equal(t, []string{
		"qwen", "a quiet street", "FAILED", "PARSE_ERROR", "PARSE_ERROR", "80",
		"I cannot help with that.", "", "no record in model output",
	}, rows[2])
	// Failed trials leave Dropped_Tags blank; successes always carry a count.
	assert.Equal(t, []string{"phi", "house with a pool", "SUCCESS", "{}", "N/A", "40", "", "0"}, rows[3])
}

func TestXLSXWriter_Pivots(t *testing.T) {
	f := writeSample(t, DefaultSheetNames())

	rows, err := f.GetRows("Logic Comparison")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Query", "qwen", "phi"}, rows[0])
	assert.Equal(t, []string{"house with a pool", `{"features":["Pool"]}`, "{}"}, rows[1])
	// phi never answered the second query; its cell stays blank.
	assert.Equal(t, []string{"a quiet street", "PARSE_ERROR"}, rows[2])

	rows, err = f.GetRows("Latency Comparison")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"house with a pool", "120.5", "40"}, rows[1])
	assert.Equal(t, []string{"a quiet street", "80"}, rows[2])
}

func TestXLSXWriter_Leaderboard(t *testing.T) {
	f := writeSample(t, DefaultSheetNames())

	rows, err := f.GetRows("Leaderboard")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, leaderboardHeaders, rows[0])
	assert.Equal(t, []string{"qwen", "100.25", "80", "120.5", "1", "2"}, rows[1])
	assert.Equal(t, []string{"phi", "40", "40", "40", "1", "1"}, rows[2])
}

func TestXLSXWriter_RunSheet(t *testing.T) {
	f := writeSample(t, DefaultSheetNames())

	rows, err := f.GetRows("Run")
	require.NoError(t, err)

	values := make(map[string]string)
	for _, row := range rows[1:] {
		require.Len(t, row, 2)
		values[row[0]] = row[1]
	}
	assert.Equal(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2", values["Run ID"])
	assert.Equal(t, "realestate-production", values["Suite"])
	assert.Equal(t, "2026-03-01T10:00:00Z", values["Started"])
	assert.Equal(t, "2m30s", values["Duration"])
	assert.Equal(t, "3", values["Trials"])
	assert.Equal(t, "2", values["Successes"])
}

func TestXLSXWriter_RejectsOtherExtensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.csv")
	err := NewXLSXWriter(DefaultSheetNames(), zap.NewNop()).Write(sampleReport(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".xlsx")
}

func TestCellText(t *testing.T) {
	assert.Equal(t, "short", cellText("short"))

	long := strings.Repeat("ü", excelize.TotalCellChars+10)
	assert.Equal(t, excelize.TotalCellChars, len([]rune(cellText(long))))
}
