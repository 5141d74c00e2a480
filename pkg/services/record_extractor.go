package services

import (
	"encoding/json"
	"fmt"

	"github.com/offerwell/intent-bench/pkg/apperrors"
	"github.com/offerwell/intent-bench/pkg/jsonutil"
	"github.com/offerwell/intent-bench/pkg/llm"
	"github.com/offerwell/intent-bench/pkg/models"
)

// ExtractRecord recovers a candidate record from raw model output. Any failure to find
// a JSON object (empty text, prose, truncated or non-object JSON) is reported as
// apperrors.ErrNoRecord; no other error is returned.
//
// The "filters" value must be an object to populate Filters. Each category value is
// coerced to a tag list: a lone string becomes one tag, nested containers are skipped.
func ExtractRecord(raw string) (*models.CandidateRecord, error) {
	obj, err := llm.ParseJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrNoRecord, err)
	}

	record := &models.CandidateRecord{FieldCount: len(obj)}

	if rawFilters, ok := obj[models.FieldFilters]; ok {
		record.Filters = parseFilters(rawFilters)
	}

	if rawDesc, ok := obj[models.FieldDescription]; ok && string(rawDesc) != "null" {
		record.Description = jsonutil.FlexibleStringValue(rawDesc)
		record.HasDescription = true
	}

	return record, nil
}

func parseFilters(raw json.RawMessage) models.Filters {
	var byCategory map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byCategory); err != nil || byCategory == nil {
		return nil
	}

	filters := make(models.Filters, len(byCategory))
	for name, value := range byCategory {
		tags := jsonutil.FlexibleStringSlice(value)
		if tags == nil {
			tags = []string{}
		}
		filters[models.Category(name)] = tags
	}
	return filters
}
