// Package llm provides the model backends a benchmark run drives: acquiring a model,
// rendering chat turns into a prompt, and generating text with a bounded output budget.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/offerwell/intent-bench/pkg/apperrors"
)

// Role is the speaker of a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single (role, content) chat message.
type Turn struct {
	Role    Role
	Content string
}

// Prompt is the rendered input for a generation call.
// Raw-completion backends use Text; chat-API backends use Turns.
type Prompt struct {
	Text  string
	Turns []Turn
}

// ModelSpec identifies a model and how to reach it.
type ModelSpec struct {
	ID       string `yaml:"id"`       // Backend model identifier, e.g. "qwen2.5:7b-instruct"
	Name     string `yaml:"name"`     // Display name in reports; derived from ID if empty
	Backend  string `yaml:"backend"`  // ollama, openai or anthropic
	Template string `yaml:"template"` // chatml, llama3, phi3, gemma or native
}

// ShortName returns the display name: Name if set, otherwise the last path segment of ID.
func (s ModelSpec) ShortName() string {
	if s.Name != "" {
		return s.Name
	}
	if i := strings.LastIndex(s.ID, "/"); i >= 0 && i < len(s.ID)-1 {
		return s.ID[i+1:]
	}
	return s.ID
}

// CheckRoster rejects a roster in which two entries share an ID or a display name.
// Trials are keyed by display name, so either would collide in the report.
func CheckRoster(specs []ModelSpec) error {
	ids := make(map[string]int, len(specs))
	names := make(map[string]int, len(specs))
	for i, s := range specs {
		if prev, ok := ids[s.ID]; ok {
			return fmt.Errorf("%w: models[%d] repeats id %q of models[%d]", apperrors.ErrDuplicateModel, i, s.ID, prev)
		}
		ids[s.ID] = i

		name := s.ShortName()
		if prev, ok := names[name]; ok {
			return fmt.Errorf("%w: models[%d] %s and models[%d] %s both report as %q; set name on one of them",
				apperrors.ErrDuplicateModel, prev, specs[prev].ID, i, s.ID, name)
		}
		names[name] = i
	}
	return nil
}

// Templater renders chat turns into a Prompt.
// Implementations return apperrors.ErrSystemRoleUnsupported when they cannot render a system turn.
type Templater interface {
	Format(turns []Turn) (Prompt, error)
}

// Generator produces text synchronously for a prompt, stopping after maxTokens tokens.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt, maxTokens int) (string, error)
}

// Model is a loaded, ready-to-use model.
type Model interface {
	Templater
	Generator
	Spec() ModelSpec
}

// Releaser is implemented by models holding backend resources that can be freed
// once their query batch is exhausted.
type Releaser interface {
	Release(ctx context.Context) error
}

// ModelProvider acquires models by spec.
type ModelProvider interface {
	Load(ctx context.Context, spec ModelSpec) (Model, error)
}
