// Package prompts holds the benchmark suite: the instructions given to every model,
// the controlled vocabulary, the synonym table used to justify tags, the model roster
// and the query corpus.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/offerwell/intent-bench/pkg/llm"
	"github.com/offerwell/intent-bench/pkg/models"
)

//go:embed default_suite.yaml
var defaultSuiteYAML []byte

// QueryPlaceholder marks where the query goes in Suite.UserTemplate.
const QueryPlaceholder = "{query}"

// CategoryVocabulary is the closed tag set of one filter category.
type CategoryVocabulary struct {
	Name models.Category `yaml:"name"`
	Tags []string        `yaml:"tags"`
}

// Example is a worked query/output pair shown to the model.
type Example struct {
	Query  string `yaml:"query"`
	Output string `yaml:"output"`
	Note   string `yaml:"note"`
}

// Suite is one benchmark definition.
type Suite struct {
	Name         string               `yaml:"name"`
	Persona      string               `yaml:"persona"`
	Objective    string               `yaml:"objective"`
	Instructions []string             `yaml:"instructions"`
	Categories   []CategoryVocabulary `yaml:"categories"`
	Examples     []Example            `yaml:"examples"`
	UserTemplate string               `yaml:"user_template"`
	Synonyms     map[string][]string  `yaml:"synonyms"`
	Models       []llm.ModelSpec      `yaml:"models"`
	Queries      []string             `yaml:"queries"`
}

// DefaultSuite returns the embedded real-estate suite.
func DefaultSuite() (*Suite, error) {
	return ParseSuite(defaultSuiteYAML)
}

// LoadSuite reads a suite file. An empty path selects the embedded default.
func LoadSuite(path string) (*Suite, error) {
	if path == "" {
		return DefaultSuite()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite %s: %w", path, err)
	}
	suite, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}
	return suite, nil
}

// ParseSuite decodes and validates a YAML suite.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse suite: %w", err)
	}
	if s.UserTemplate == "" {
		s.UserTemplate = "Map this: '" + QueryPlaceholder + "'"
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the suite can drive a run. Queries key the report pivots, so they must be unique.
func (s *Suite) Validate() error {
	if len(s.Queries) == 0 {
		return fmt.Errorf("suite has no queries")
	}
	if len(s.Categories) == 0 {
		return fmt.Errorf("suite has no categories")
	}
	if !strings.Contains(s.UserTemplate, QueryPlaceholder) {
		return fmt.Errorf("user_template must contain %s", QueryPlaceholder)
	}

	seenCategories := make(map[models.Category]bool, len(s.Categories))
	for _, c := range s.Categories {
		if c.Name == "" {
			return fmt.Errorf("category with empty name")
		}
		if seenCategories[c.Name] {
			return fmt.Errorf("duplicate category %q", c.Name)
		}
		seenCategories[c.Name] = true
	}

	seenQueries := make(map[string]int, len(s.Queries))
	for i, q := range s.Queries {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("query %d is empty", i)
		}
		if prev, ok := seenQueries[q]; ok {
			return fmt.Errorf("query %d duplicates query %d: %q", i, prev, q)
		}
		seenQueries[q] = i
	}

	for _, m := range s.Models {
		if m.ID == "" {
			return fmt.Errorf("model with empty id")
		}
		if !llm.IsKnownBackend(m.Backend) {
			return fmt.Errorf("model %s: unknown backend %q", m.ID, m.Backend)
		}
		if !llm.IsKnownTemplate(m.Template) {
			return fmt.Errorf("model %s: unknown template %q", m.ID, m.Template)
		}
	}
	return llm.CheckRoster(s.Models)
}

// CategoryNames returns the categories in schema order.
func (s *Suite) CategoryNames() []models.Category {
	names := make([]models.Category, 0, len(s.Categories))
	for _, c := range s.Categories {
		names = append(names, c.Name)
	}
	return names
}

// UserTurn renders the user message for a query.
func (s *Suite) UserTurn(query string) string {
	return strings.ReplaceAll(s.UserTemplate, QueryPlaceholder, query)
}

// FallbackUserTurn folds the instructions into the user message for templates
// without a system role.
func (s *Suite) FallbackUserTurn(query string) string {
	return BuildSystemPrompt(s) + "\n\nUser query: " + s.UserTurn(query)
}

// SynonymTable builds the lookup table for the suite's synonyms.
func (s *Suite) SynonymTable() *SynonymTable {
	return NewSynonymTable(s.Synonyms)
}
