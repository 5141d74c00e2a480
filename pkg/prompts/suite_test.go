package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offerwell/intent-bench/pkg/llm"
	"github.com/offerwell/intent-bench/pkg/models"
)

const minimalSuite = `
name: tiny
categories:
  - name: features
    tags: [Pool, Garage]
synonyms:
  Garage: [parking]
queries:
  - "house with a pool"
  - "somewhere to park"
`

func TestDefaultSuite(t *testing.T) {
	suite, err := DefaultSuite()
	require.NoError(t, err)

	assert.Equal(t, "realestate-production", suite.Name)
	assert.Len(t, suite.Queries, 60)
	assert.Equal(t, "3 bedroom home with a big backyard in a safe neighborhood under $500,000", suite.Queries[0])
	assert.Equal(t, models.DefaultCategories, suite.CategoryNames())
	assert.Len(t, suite.Synonyms, 12)
	assert.Equal(t, 12, suite.SynonymTable().Len())

	require.Len(t, suite.Models, 5)
	assert.Equal(t, "Qwen2.5-7B-Instruct-4bit", suite.Models[0].ShortName())
	assert.Equal(t, llm.TemplatePhi3, suite.Models[3].Template)

	for _, c := range suite.Categories {
		assert.NotEmpty(t, c.Tags, c.Name)
	}
}

func TestSuite_UserTurn(t *testing.T) {
	suite, err := DefaultSuite()
	require.NoError(t, err)

	assert.Equal(t, "Map this: 'Condo near a park'", suite.UserTurn("Condo near a park"))
}

func TestSuite_FallbackUserTurn(t *testing.T) {
	suite, err := DefaultSuite()
	require.NoError(t, err)

	turn := suite.FallbackUserTurn("Condo near a park")
	assert.True(t, strings.HasPrefix(turn, BuildSystemPrompt(suite)))
	assert.True(t, strings.HasSuffix(turn, "\n\nUser query: Map this: 'Condo near a park'"))
}

func TestBuildSystemPrompt(t *testing.T) {
	suite, err := DefaultSuite()
	require.NoError(t, err)

	prompt := BuildSystemPrompt(suite)

	assert.True(t, strings.HasPrefix(prompt, "You are the Offerwell Search Agent."))
	assert.Contains(t, prompt, "### CORE OBJECTIVE")
	assert.Contains(t, prompt, "3. **APPLY THE CAMERA TEST**")
	assert.Contains(t, prompt, `- **material**: ["Brick", "Stone", "Wood", "Vinyl", "Stucco", "Concrete", "Log", "Metal", "Glass"]`)
	assert.Contains(t, prompt, `"Chef's Kitchen"`)
	assert.Contains(t, prompt, `"location_signals": []`)
	assert.Contains(t, prompt, `"vector_query": "string"`)
	assert.Contains(t, prompt, `User: "Something with a big ugly kitchen I can rip out."`)
	assert.NotContains(t, prompt, "<|im_start|>")
	assert.False(t, strings.HasSuffix(prompt, "\n"))
}

func TestBuildSystemPrompt_Minimal(t *testing.T) {
	suite, err := ParseSuite([]byte(minimalSuite))
	require.NoError(t, err)

	prompt := BuildSystemPrompt(suite)

	assert.True(t, strings.HasPrefix(prompt, "### DEFINED FIELDS"))
	assert.NotContains(t, prompt, "### EXAMPLES")
	assert.Contains(t, prompt, "{\n  \"filters\": {\n    \"features\": []\n  },\n  \"vector_query\": \"string\"\n}")
}

func TestParseSuite_DefaultsUserTemplate(t *testing.T) {
	suite, err := ParseSuite([]byte(minimalSuite))
	require.NoError(t, err)

	assert.Equal(t, "Map this: 'x'", suite.UserTurn("x"))
	assert.Empty(t, suite.Models)
}

func TestParseSuite_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no queries",
			yaml:    "categories: [{name: features, tags: [Pool]}]",
			wantErr: "no queries",
		},
		{
			name:    "no categories",
			yaml:    "queries: [a]",
			wantErr: "no categories",
		},
		{
			name:    "duplicate query",
			yaml:    "categories: [{name: features}]\nqueries: [a, b, a]",
			wantErr: "duplicates query 0",
		},
		{
			name:    "duplicate category",
			yaml:    "categories: [{name: features}, {name: features}]\nqueries: [a]",
			wantErr: "duplicate category",
		},
		{
			name:    "template without placeholder",
			yaml:    "user_template: Map this\ncategories: [{name: features}]\nqueries: [a]",
			wantErr: "{query}",
		},
		{
			name:    "unknown backend",
			yaml:    "categories: [{name: features}]\nqueries: [a]\nmodels: [{id: m, backend: bedrock}]",
			wantErr: "unknown backend",
		},
		{
			name:    "unknown template",
			yaml:    "categories: [{name: features}]\nqueries: [a]\nmodels: [{id: m, template: alpaca}]",
			wantErr: "unknown template",
		},
		{
			name:    "colliding model names",
			yaml:    "categories: [{name: features}]\nqueries: [a]\nmodels: [{id: a/qwen}, {id: b/qwen}]",
			wantErr: "duplicate model",
		},
		{
			name:    "malformed yaml",
			yaml:    "queries: [a",
			wantErr: "parse suite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSuite([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSuite(t *testing.T) {
	t.Run("empty path uses embedded default", func(t *testing.T) {
		suite, err := LoadSuite("")
		require.NoError(t, err)
		assert.Equal(t, "realestate-production", suite.Name)
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "suite.yaml")
		require.NoError(t, os.WriteFile(path, []byte(minimalSuite), 0o600))

		suite, err := LoadSuite(path)
		require.NoError(t, err)
		assert.Equal(t, "tiny", suite.Name)
		assert.Equal(t, []string{"house with a pool", "somewhere to park"}, suite.Queries)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSuite(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
