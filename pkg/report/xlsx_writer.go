// Package report writes a finished benchmark report to a spreadsheet.
package report

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/offerwell/intent-bench/pkg/models"
)

// Raw Data column headers, in order.
var rawHeaders = []string{
	"Model", "Query", "Status", "SQL_Filters", "Vector_Vibe", "Latency_ms", "Raw_Output", "Dropped_Tags", "Error",
}

var leaderboardHeaders = []string{
	"Model", "Latency_ms_mean", "Latency_ms_min", "Latency_ms_max", "Successes", "Trials",
}

// SheetNames names the worksheets, in workbook order.
type SheetNames struct {
	Raw         string
	Comparison  string
	Latency     string
	Leaderboard string
	Run         string
}

// DefaultSheetNames returns the production sheet names.
func DefaultSheetNames() SheetNames {
	return SheetNames{
		Raw:         "Raw Data",
		Comparison:  "Logic Comparison",
		Latency:     "Latency Comparison",
		Leaderboard: "Leaderboard",
		Run:         "Run",
	}
}

// XLSXWriter renders a models.Report as an .xlsx workbook.
type XLSXWriter struct {
	sheets SheetNames
	logger *zap.Logger
}

// NewXLSXWriter creates a writer using the given sheet names.
func NewXLSXWriter(sheets SheetNames, logger *zap.Logger) *XLSXWriter {
	return &XLSXWriter{
		sheets: sheets,
		logger: logger.Named("report"),
	}
}

// Write renders report and saves it to path, replacing any existing file.
func (w *XLSXWriter) Write(report *models.Report, path string) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".xlsx" {
		return fmt.Errorf("report path %s: expected .xlsx extension", path)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("Failed to close workbook", zap.Error(err))
		}
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	// The new workbook starts with "Sheet1"; rename it rather than leave it empty.
	if err := f.SetSheetName("Sheet1", w.sheets.Raw); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{w.sheets.Comparison, w.sheets.Latency, w.sheets.Leaderboard, w.sheets.Run} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
	}

	steps := []struct {
		sheet string
		write func(*excelize.File, string, *models.Report) error
	}{
		{w.sheets.Raw, writeRawData},
		{w.sheets.Comparison, writeFilterPivot},
		{w.sheets.Latency, writeLatencyPivot},
		{w.sheets.Leaderboard, writeLeaderboard},
		{w.sheets.Run, writeRunInfo},
	}
	for _, step := range steps {
		if err := step.write(f, step.sheet, report); err != nil {
			return fmt.Errorf("write sheet %q: %w", step.sheet, err)
		}
		if err := styleHeader(f, step.sheet, headerStyle); err != nil {
			return fmt.Errorf("style sheet %q: %w", step.sheet, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	w.logger.Info("Report written",
		zap.String("path", path),
		zap.Int("trials", len(report.Trials)),
		zap.Int("models", len(report.Models)),
		zap.Int("queries", len(report.Queries)))
	return nil
}

func writeRawData(f *excelize.File, sheet string, report *models.Report) error {
	if err := setRow(f, sheet, 1, toCells(rawHeaders)); err != nil {
		return err
	}
	for i := range report.Trials {
		t := &report.Trials[i]
		var dropped interface{}
		if t.Record != nil {
			dropped = t.Record.DropCount()
		}
		row := []interface{}{
			t.Model,
			t.Query,
			string(t.Status),
			cellText(t.FiltersCell()),
			cellText(t.DescriptionCell()),
			t.LatencyMs,
			cellText(t.RawOutput),
			dropped,
			cellText(t.Error),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "B", "B", 60)
}

// writeFilterPivot lays out queries as rows and models as columns. Pairs that
// were never evaluated stay blank.
func writeFilterPivot(f *excelize.File, sheet string, report *models.Report) error {
	return writePivot(f, sheet, report, func(model, query string) (interface{}, bool) {
		v, ok := report.FilterCell(model, query)
		return cellText(v), ok
	})
}

func writeLatencyPivot(f *excelize.File, sheet string, report *models.Report) error {
	return writePivot(f, sheet, report, func(model, query string) (interface{}, bool) {
		return report.LatencyCell(model, query)
	})
}

func writePivot(f *excelize.File, sheet string, report *models.Report, cell func(model, query string) (interface{}, bool)) error {
	header := make([]interface{}, 0, len(report.Models)+1)
	header = append(header, "Query")
	for _, m := range report.Models {
		header = append(header, m)
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i, query := range report.Queries {
		row := make([]interface{}, 0, len(report.Models)+1)
		row = append(row, query)
		for _, model := range report.Models {
			if v, ok := cell(model, query); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "A", 60)
}

func writeLeaderboard(f *excelize.File, sheet string, report *models.Report) error {
	if err := setRow(f, sheet, 1, toCells(leaderboardHeaders)); err != nil {
		return err
	}
	for i, s := range report.Leaderboard {
		row := []interface{}{
			s.Model,
			roundTo2(s.MeanLatencyMs),
			s.MinLatencyMs,
			s.MaxLatencyMs,
			s.Successes,
			s.Trials,
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRunInfo(f *excelize.File, sheet string, report *models.Report) error {
	successes := 0
	for i := range report.Trials {
		if report.Trials[i].Succeeded() {
			successes++
		}
	}

	rows := [][]interface{}{
		{"Field", "Value"},
		{"Run ID", report.RunID.String()},
		{"Suite", report.SuiteName},
		{"Started", formatTime(report.StartedAt)},
		{"Finished", formatTime(report.FinishedAt)},
		{"Duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String()},
		{"Models", len(report.Models)},
		{"Queries", len(report.Queries)},
		{"Trials", len(report.Trials)},
		{"Successes", successes},
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, style int) error {
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// cellText clips s to the spreadsheet's per-cell character limit.
func cellText(s string) string {
	if len(s) <= excelize.TotalCellChars {
		return s
	}
	runes := []rune(s)
	if len(runes) <= excelize.TotalCellChars {
		return s
	}
	return string(runes[:excelize.TotalCellChars])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
