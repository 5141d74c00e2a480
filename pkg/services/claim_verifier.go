package services

import (
	"strings"

	"github.com/offerwell/intent-bench/pkg/models"
	"github.com/offerwell/intent-bench/pkg/prompts"
)

// ClaimVerifier removes tags a query gives no textual evidence for.
// It holds no mutable state and is safe for concurrent use.
type ClaimVerifier struct {
	synonyms *prompts.SynonymTable
}

// NewClaimVerifier creates a verifier backed by an immutable synonym table.
func NewClaimVerifier(synonyms *prompts.SynonymTable) *ClaimVerifier {
	return &ClaimVerifier{synonyms: synonyms}
}

// Verify reduces every category of the candidate to the tags justified by query,
// preserving their order. The description passes through unchanged, and a candidate
// without a filters section comes back with nil Filters. A nil candidate yields nil.
func (v *ClaimVerifier) Verify(query string, candidate *models.CandidateRecord) *models.VerifiedRecord {
	if candidate == nil {
		return nil
	}

	verified := &models.VerifiedRecord{
		Description:    candidate.Description,
		HasDescription: candidate.HasDescription,
		FieldCount:     candidate.FieldCount,
	}
	if candidate.Filters == nil {
		return verified
	}

	lowerQuery := strings.ToLower(query)
	verified.Filters = make(models.Filters, len(candidate.Filters))
	for category, tags := range candidate.Filters {
		kept := make([]string, 0, len(tags))
		for _, tag := range tags {
			if v.justified(tag, lowerQuery) {
				kept = append(kept, tag)
				continue
			}
			if verified.Dropped == nil {
				verified.Dropped = make(models.Filters)
			}
			verified.Dropped[category] = append(verified.Dropped[category], tag)
		}
		verified.Filters[category] = kept
	}
	return verified
}

// justified: literal substring first, then any synonym surface form.
func (v *ClaimVerifier) justified(tag, lowerQuery string) bool {
	if strings.Contains(lowerQuery, strings.ToLower(tag)) {
		return true
	}
	return v.synonyms.Justifies(tag, lowerQuery)
}
