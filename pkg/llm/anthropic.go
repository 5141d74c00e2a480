package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicProvider loads hosted Claude models as a reference point for the
// small local models. Formatting is left to the Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	logger *zap.Logger
}

// NewAnthropicProvider creates a provider for the Anthropic Messages API.
func NewAnthropicProvider(cfg *Config, logger *zap.Logger) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		logger: logger.Named("llm.anthropic"),
	}, nil
}

// Load returns the model. Availability is only known on the first request.
func (p *AnthropicProvider) Load(_ context.Context, spec ModelSpec) (Model, error) {
	tmplName := spec.Template
	if tmplName == "" {
		tmplName = TemplateNative
	}
	tmpl, err := NewTemplate(tmplName)
	if err != nil {
		return nil, err
	}
	return &anthropicModel{Templater: tmpl, provider: p, spec: spec}, nil
}

type anthropicModel struct {
	Templater
	provider *AnthropicProvider
	spec     ModelSpec
}

func (m *anthropicModel) Spec() ModelSpec { return m.spec }

// Generate sends the prompt turns; system turns become the request's system prompt.
func (m *anthropicModel) Generate(ctx context.Context, prompt Prompt, maxTokens int) (string, error) {
	var system []string
	var messages []anthropic.Message
	for _, t := range prompt.Turns {
		switch t.Role {
		case RoleSystem:
			system = append(system, t.Content)
		case RoleAssistant:
			messages = append(messages, textMessage(anthropic.RoleAssistant, t.Content))
		default:
			messages = append(messages, textMessage(anthropic.RoleUser, t.Content))
		}
	}
	if len(messages) == 0 {
		messages = append(messages, textMessage(anthropic.RoleUser, prompt.Text))
	}

	start := time.Now()
	resp, err := m.provider.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(m.spec.ID),
		System:    strings.Join(system, "\n\n"),
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		m.provider.logger.Error("Messages request failed",
			zap.String("model", m.spec.ID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err).WithModel(m.spec.ID)
	}

	m.provider.logger.Debug("Messages request completed",
		zap.String("model", m.spec.ID),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}
	return text.String(), nil
}

func textMessage(role anthropic.ChatRole, text string) anthropic.Message {
	return anthropic.Message{
		Role:    role,
		Content: []anthropic.MessageContent{{Type: "text", Text: &text}},
	}
}
