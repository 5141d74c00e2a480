package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds the connection settings of an HTTP model backend.
type Config struct {
	Endpoint string // Base URL, e.g. "http://localhost:8080/v1"
	APIKey   string // Optional for local endpoints
}

// OpenAIProvider loads models served behind an OpenAI-compatible completions API
// (mlx_lm.server, vLLM, llama.cpp server).
type OpenAIProvider struct {
	client   *openai.Client
	endpoint string
	logger   *zap.Logger
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
func NewOpenAIProvider(cfg *Config, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(clientConfig),
		endpoint: cfg.Endpoint,
		logger:   logger.Named("llm.openai"),
	}, nil
}

// Load checks that the server lists the model and returns it.
// Servers that list no models at all are trusted to serve whatever is asked for.
func (p *OpenAIProvider) Load(ctx context.Context, spec ModelSpec) (Model, error) {
	tmpl, err := NewTemplate(spec.Template)
	if err != nil {
		return nil, err
	}

	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, ClassifyError(err).WithModel(spec.ID)
	}
	if len(list.Models) > 0 && !containsModel(list.Models, spec.ID) {
		return nil, NewError(ErrorTypeModel, "model not served by endpoint", false, nil).WithModel(spec.ID)
	}

	p.logger.Debug("Model available", zap.String("model", spec.ID), zap.String("endpoint", p.endpoint))

	return &openAIModel{
		Templater: tmpl,
		provider:  p,
		spec:      spec,
	}, nil
}

func containsModel(models []openai.Model, id string) bool {
	for _, m := range models {
		if m.ID == id {
			return true
		}
	}
	return false
}

type openAIModel struct {
	Templater
	provider *OpenAIProvider
	spec     ModelSpec
}

func (m *openAIModel) Spec() ModelSpec { return m.spec }

// Generate sends the rendered prompt text to the completions endpoint.
func (m *openAIModel) Generate(ctx context.Context, prompt Prompt, maxTokens int) (string, error) {
	logger := m.provider.logger
	logger.Debug("Completion request",
		zap.String("model", m.spec.ID),
		zap.Int("prompt_len", len(prompt.Text)),
		zap.Int("max_tokens", maxTokens))

	start := time.Now()

	resp, err := m.provider.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:     m.spec.ID,
		Prompt:    prompt.Text,
		MaxTokens: maxTokens,
	})
	if err != nil {
		logger.Error("Completion request failed",
			zap.String("model", m.spec.ID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err).WithModel(m.spec.ID)
	}

	if len(resp.Choices) == 0 {
		return "", NewError(ErrorTypeUnknown, "no choices in response", false, nil).WithModel(m.spec.ID)
	}

	fields := []zap.Field{zap.String("model", m.spec.ID), zap.Duration("elapsed", time.Since(start))}
	if resp.Usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	}
	logger.Debug("Completion request completed", fields...)

	return resp.Choices[0].Text, nil
}
