package llm

import (
	"context"
	"sync"
)

// MockModel is a configurable Model for tests.
// Set the function fields to control behavior. Safe for concurrent use.
type MockModel struct {
	// SpecValue is returned by Spec.
	SpecValue ModelSpec

	// GenerateFunc is called when Generate is invoked.
	// If nil, returns an empty string and nil error.
	GenerateFunc func(ctx context.Context, prompt Prompt, maxTokens int) (string, error)

	// FormatFunc is called when Format is invoked.
	// If nil, the chatml template is used.
	FormatFunc func(turns []Turn) (Prompt, error)

	// ReleaseFunc is called when Release is invoked.
	ReleaseFunc func(ctx context.Context) error

	mu            sync.Mutex
	generateCalls int
	formatCalls   int
	releaseCalls  int
	prompts       []Prompt
}

// NewMockModel creates a mock model for the given id.
func NewMockModel(id string) *MockModel {
	return &MockModel{SpecValue: ModelSpec{ID: id, Backend: "mock", Template: TemplateChatML}}
}

// Spec implements Model.
func (m *MockModel) Spec() ModelSpec {
	return m.SpecValue
}

// Format implements Templater.
func (m *MockModel) Format(turns []Turn) (Prompt, error) {
	m.mu.Lock()
	m.formatCalls++
	m.mu.Unlock()
	if m.FormatFunc != nil {
		return m.FormatFunc(turns)
	}
	return chatMLTemplate{}.Format(turns)
}

// Generate implements Generator.
func (m *MockModel) Generate(ctx context.Context, prompt Prompt, maxTokens int) (string, error) {
	m.mu.Lock()
	m.generateCalls++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, maxTokens)
	}
	return "", nil
}

// Release implements Releaser.
func (m *MockModel) Release(ctx context.Context) error {
	m.mu.Lock()
	m.releaseCalls++
	m.mu.Unlock()
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx)
	}
	return nil
}

// GenerateCalls returns how many times Generate was called.
func (m *MockModel) GenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateCalls
}

// FormatCalls returns how many times Format was called.
func (m *MockModel) FormatCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.formatCalls
}

// ReleaseCalls returns how many times Release was called.
func (m *MockModel) ReleaseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseCalls
}

// Prompts returns a copy of every prompt passed to Generate.
func (m *MockModel) Prompts() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Prompt, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Ensure MockModel implements Model and Releaser at compile time.
var (
	_ Model    = (*MockModel)(nil)
	_ Releaser = (*MockModel)(nil)
)

// MockModelProvider is a configurable ModelProvider for tests.
type MockModelProvider struct {
	// LoadFunc is called when Load is invoked.
	// If nil, Models is consulted and a fresh MockModel is returned for unknown ids.
	LoadFunc func(ctx context.Context, spec ModelSpec) (Model, error)

	// Models maps model ids to the mock returned by Load.
	Models map[string]*MockModel

	mu        sync.Mutex
	loadCalls []string
}

// NewMockModelProvider creates a provider with no preconfigured models.
func NewMockModelProvider() *MockModelProvider {
	return &MockModelProvider{Models: make(map[string]*MockModel)}
}

// Load implements ModelProvider.
func (p *MockModelProvider) Load(ctx context.Context, spec ModelSpec) (Model, error) {
	p.mu.Lock()
	p.loadCalls = append(p.loadCalls, spec.ID)
	p.mu.Unlock()

	if p.LoadFunc != nil {
		return p.LoadFunc(ctx, spec)
	}
	if m, ok := p.Models[spec.ID]; ok {
		return m, nil
	}
	m := NewMockModel(spec.ID)
	m.SpecValue = spec
	return m, nil
}

// LoadCalls returns the model ids passed to Load, in call order.
func (p *MockModelProvider) LoadCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.loadCalls))
	copy(out, p.loadCalls)
	return out
}

// Ensure MockModelProvider implements ModelProvider at compile time.
var _ ModelProvider = (*MockModelProvider)(nil)
