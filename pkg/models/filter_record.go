package models

import (
	"encoding/json"
	"sort"
)

// Category is one of the closed set of filter axes a model may populate.
type Category string

const (
	CategoryFeatures        Category = "features"
	CategoryMaterial        Category = "material"
	CategoryLocationSignals Category = "location_signals"
)

// Top-level keys of the record a model is asked to produce.
const (
	FieldFilters     = "filters"
	FieldDescription = "vector_query"
)

// DefaultCategories lists the filter axes in the order they appear in the output schema.
var DefaultCategories = []Category{CategoryFeatures, CategoryMaterial, CategoryLocationSignals}

// Filters maps each category present in a record to its ordered tag list.
type Filters map[Category][]string

// Clone returns a deep copy so callers can reduce tags without touching the source.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for cat, tags := range f {
		cp := make([]string, len(tags))
		copy(cp, tags)
		out[cat] = cp
	}
	return out
}

// Categories returns the categories present in f, sorted for stable iteration.
func (f Filters) Categories() []Category {
	cats := make([]Category, 0, len(f))
	for cat := range f {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// JSON renders the filters the way they appear in the report cells.
// Categories are emitted in key order; an empty tag list renders as [].
func (f Filters) JSON() string {
	if f == nil {
		return "{}"
	}
	normalized := make(map[Category][]string, len(f))
	for cat, tags := range f {
		if tags == nil {
			tags = []string{}
		}
		normalized[cat] = tags
	}
	b, err := json.Marshal(normalized)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// CandidateRecord is the best-effort parse of a model response.
// Filters is nil when the response had no usable "filters" section.
type CandidateRecord struct {
	Filters        Filters
	Description    string
	HasDescription bool

	// FieldCount is the number of top-level keys in the parsed object.
	// A record with zero keys counts as absent when classifying a trial.
	FieldCount int
}

// IsEmpty reports whether the parsed object carried no fields at all.
func (r *CandidateRecord) IsEmpty() bool {
	return r == nil || r.FieldCount == 0
}

// VerifiedRecord is a CandidateRecord after unsupported tags were removed.
type VerifiedRecord struct {
	Filters        Filters
	Description    string
	HasDescription bool
	FieldCount     int

	// Dropped holds the tags removed per category, kept for auditing.
	Dropped Filters
}

// IsEmpty mirrors CandidateRecord.IsEmpty.
func (r *VerifiedRecord) IsEmpty() bool {
	return r == nil || r.FieldCount == 0
}

// Candidate returns the record as a candidate again, for re-verification.
func (r *VerifiedRecord) Candidate() *CandidateRecord {
	if r == nil {
		return nil
	}
	return &CandidateRecord{
		Filters:        r.Filters.Clone(),
		Description:    r.Description,
		HasDescription: r.HasDescription,
		FieldCount:     r.FieldCount,
	}
}

// DropCount returns the number of tags removed across all categories.
func (r *VerifiedRecord) DropCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, tags := range r.Dropped {
		n += len(tags)
	}
	return n
}

// DescriptionOr returns the description or fallback when the record carried none.
func (r *VerifiedRecord) DescriptionOr(fallback string) string {
	if r == nil || !r.HasDescription {
		return fallback
	}
	return r.Description
}
