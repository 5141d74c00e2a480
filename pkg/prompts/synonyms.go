package prompts

import "strings"

// SynonymTable maps a canonical tag to the surface forms that justify it when the tag
// itself does not appear in a query. Keys and forms are lowercased at construction
// and the table is never mutated afterwards, so it is safe to share between goroutines.
type SynonymTable struct {
	forms map[string][]string
}

// NewSynonymTable builds a table from tag -> forms entries. Blank forms are ignored.
func NewSynonymTable(entries map[string][]string) *SynonymTable {
	t := &SynonymTable{forms: make(map[string][]string, len(entries))}
	for tag, forms := range entries {
		key := strings.ToLower(strings.TrimSpace(tag))
		if key == "" {
			continue
		}
		seen := make(map[string]bool, len(t.forms[key])+len(forms))
		for _, f := range t.forms[key] {
			seen[f] = true
		}
		for _, f := range forms {
			f = strings.ToLower(strings.TrimSpace(f))
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			t.forms[key] = append(t.forms[key], f)
		}
	}
	return t
}

// Forms returns the surface forms for tag, or nil. The slice must not be modified.
func (t *SynonymTable) Forms(tag string) []string {
	if t == nil {
		return nil
	}
	return t.forms[strings.ToLower(strings.TrimSpace(tag))]
}

// Justifies reports whether any surface form of tag occurs in lowerText,
// which must already be lowercased.
func (t *SynonymTable) Justifies(tag, lowerText string) bool {
	for _, f := range t.Forms(tag) {
		if strings.Contains(lowerText, f) {
			return true
		}
	}
	return false
}

// Len returns the number of tags with at least one form.
func (t *SynonymTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.forms)
}
