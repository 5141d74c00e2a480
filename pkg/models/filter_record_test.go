package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilters_JSON(t *testing.T) {
	tests := []struct {
		name    string
		filters Filters
		want    string
	}{
		{"nil", nil, "{}"},
		{"empty", Filters{}, "{}"},
		{"nil tags render as empty list", Filters{CategoryMaterial: nil}, `{"material":[]}`},
		{
			"keys sorted, tag order kept",
			Filters{
				CategoryMaterial:        {"Stone", "Brick"},
				CategoryFeatures:        {"Pool"},
				CategoryLocationSignals: {},
			},
			`{"features":["Pool"],"location_signals":[],"material":["Stone","Brick"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.JSON())
		})
	}
}

func TestFilters_Clone(t *testing.T) {
	assert.Nil(t, Filters(nil).Clone())

	src := Filters{CategoryFeatures: {"Pool", "Garage"}}
	cp := src.Clone()
	cp[CategoryFeatures][0] = "Changed"
	cp[CategoryMaterial] = []string{"Wood"}

	assert.Equal(t, Filters{CategoryFeatures: {"Pool", "Garage"}}, src)
}

func TestFilters_Categories(t *testing.T) {
	f := Filters{CategoryMaterial: nil, CategoryFeatures: nil, CategoryLocationSignals: nil}
	assert.Equal(t, []Category{CategoryFeatures, CategoryLocationSignals, CategoryMaterial}, f.Categories())
}

func TestCandidateRecord_IsEmpty(t *testing.T) {
	var nilRecord *CandidateRecord
	assert.True(t, nilRecord.IsEmpty())
	assert.True(t, (&CandidateRecord{}).IsEmpty())
	assert.False(t, (&CandidateRecord{FieldCount: 1}).IsEmpty())
}

func TestVerifiedRecord_Helpers(t *testing.T) {
	r := &VerifiedRecord{
		Filters:        Filters{CategoryFeatures: {"Pool"}},
		Description:    "blue pool",
		HasDescription: true,
		FieldCount:     2,
		Dropped:        Filters{CategoryFeatures: {"Garage"}, CategoryLocationSignals: {"Quiet", "Park"}},
	}

	assert.Equal(t, 3, r.DropCount())
	assert.Equal(t, "blue pool", r.DescriptionOr(MissingDescription))
	assert.False(t, r.IsEmpty())

	c := r.Candidate()
	assert.Equal(t, r.Filters, c.Filters)
	assert.Equal(t, 2, c.FieldCount)
	c.Filters[CategoryFeatures][0] = "Changed"
	assert.Equal(t, "Pool", r.Filters[CategoryFeatures][0])

	var nilRecord *VerifiedRecord
	assert.Equal(t, 0, nilRecord.DropCount())
	assert.Nil(t, nilRecord.Candidate())
	assert.Equal(t, "N/A", nilRecord.DescriptionOr("N/A"))
	assert.Equal(t, "N/A", (&VerifiedRecord{Description: "ignored"}).DescriptionOr("N/A"))
}
