package llm

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/offerwell/intent-bench/pkg/apperrors"
)

// Backend names accepted in model specs.
const (
	BackendOllama    = "ollama"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

// Router is a ModelProvider that dispatches to the provider registered for a
// spec's backend. The orchestrator only ever sees the ModelProvider interface.
type Router struct {
	providers map[string]ModelProvider
	logger    *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		providers: make(map[string]ModelProvider),
		logger:    logger.Named("llm.router"),
	}
}

// Register binds a provider to a backend name, replacing any previous binding.
func (r *Router) Register(backend string, provider ModelProvider) {
	r.providers[backend] = provider
}

// Backends returns the registered backend names in sorted order.
func (r *Router) Backends() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load implements ModelProvider.
func (r *Router) Load(ctx context.Context, spec ModelSpec) (Model, error) {
	backend := spec.Backend
	if backend == "" {
		backend = BackendOllama
	}
	provider, ok := r.providers[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", apperrors.ErrUnknownBackend, backend, r.Backends())
	}
	r.logger.Debug("Loading model", zap.String("model", spec.ID), zap.String("backend", backend))
	return provider.Load(ctx, spec)
}

// IsKnownBackend reports whether name is one of the supported backends.
func IsKnownBackend(name string) bool {
	switch name {
	case "", BackendOllama, BackendOpenAI, BackendAnthropic:
		return true
	}
	return false
}

// Ensure Router implements ModelProvider at compile time.
var _ ModelProvider = (*Router)(nil)
