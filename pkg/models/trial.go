package models

import "time"

// TrialStatus is the outcome classification of a single trial.
type TrialStatus string

const (
	TrialStatusSuccess TrialStatus = "SUCCESS"
	TrialStatusFailed  TrialStatus = "FAILED"
)

// Placeholder cell values used by the report when a trial produced no record.
const (
	ParseErrorMarker   = "PARSE_ERROR"
	MissingDescription = "N/A"
)

// Trial is one (model, query) evaluation. It is immutable once appended to a result set.
type Trial struct {
	// ModelIndex and QueryIndex are the positions in the input lists; they restore
	// model-major, query-preserving order after concurrent execution.
	ModelIndex int `json:"-"`
	QueryIndex int `json:"-"`

	Model   string      `json:"model"`
	ModelID string      `json:"model_id"`
	Query   string      `json:"query"`
	Status  TrialStatus `json:"status"`

	Record *VerifiedRecord `json:"-"`

	LatencyMs float64 `json:"latency_ms"`
	RawOutput string  `json:"raw_output"`

	// Error is set when generation or extraction failed.
	Error string `json:"error,omitempty"`

	// UsedFallbackTemplate is true when the system role was folded into the user turn.
	UsedFallbackTemplate bool `json:"used_fallback_template"`

	StartedAt time.Time `json:"started_at"`
}

// Succeeded reports whether the trial produced a parseable record.
func (t *Trial) Succeeded() bool {
	return t.Status == TrialStatusSuccess
}

// FiltersCell is the value shown in the filters pivot and raw data sheet.
func (t *Trial) FiltersCell() string {
	if !t.Succeeded() || t.Record == nil {
		return ParseErrorMarker
	}
	return t.Record.Filters.JSON()
}

// DescriptionCell is the value shown in the raw data sheet for the visual description.
func (t *Trial) DescriptionCell() string {
	if !t.Succeeded() || t.Record == nil {
		return ParseErrorMarker
	}
	return t.Record.DescriptionOr(MissingDescription)
}
