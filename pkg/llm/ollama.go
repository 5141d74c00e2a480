package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// OllamaConfig configures the Ollama backend.
type OllamaConfig struct {
	BaseURL     string        // e.g. "http://localhost:11434"
	PullMissing bool          // Pull models that are not present locally
	Timeout     time.Duration // HTTP client timeout; zero means no timeout
}

// OllamaProvider loads local models from an Ollama server. Prompts are sent
// pre-rendered with raw mode so the chat template stays under our control.
type OllamaProvider struct {
	httpClient  *http.Client
	baseURL     string
	pullMissing bool
	logger      *zap.Logger
}

type ollamaModelRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	Raw       bool           `json:"raw"`
	Stream    bool           `json:"stream"`
	KeepAlive *int           `json:"keep_alive,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates a provider for an Ollama server.
func NewOllamaProvider(cfg OllamaConfig, logger *zap.Logger) (*OllamaProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama base url is required")
	}
	return &OllamaProvider{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		pullMissing: cfg.PullMissing,
		logger:      logger.Named("llm.ollama"),
	}, nil
}

// Load verifies the model exists locally, pulling it first when configured to.
func (p *OllamaProvider) Load(ctx context.Context, spec ModelSpec) (Model, error) {
	tmpl, err := NewTemplate(spec.Template)
	if err != nil {
		return nil, err
	}

	err = p.post(ctx, "/api/show", ollamaModelRequest{Model: spec.ID}, nil)
	if err != nil && p.pullMissing && GetErrorType(err) == ErrorTypeModel {
		p.logger.Info("Pulling model", zap.String("model", spec.ID))
		err = p.post(ctx, "/api/pull", ollamaModelRequest{Model: spec.ID, Stream: false}, nil)
	}
	if err != nil {
		return nil, ClassifyError(err).WithModel(spec.ID)
	}

	return &ollamaModel{Templater: tmpl, provider: p, spec: spec}, nil
}

type ollamaModel struct {
	Templater
	provider *OllamaProvider
	spec     ModelSpec
}

func (m *ollamaModel) Spec() ModelSpec { return m.spec }

// Generate runs a raw, non-streaming generation capped at maxTokens.
func (m *ollamaModel) Generate(ctx context.Context, prompt Prompt, maxTokens int) (string, error) {
	start := time.Now()

	var resp ollamaGenerateResponse
	err := m.provider.post(ctx, "/api/generate", ollamaGenerateRequest{
		Model:  m.spec.ID,
		Prompt: prompt.Text,
		Raw:    true,
		Stream: false,
		Options: map[string]any{
			"num_predict": maxTokens,
			"temperature": 0,
		},
	}, &resp)
	if err != nil {
		m.provider.logger.Error("Generate request failed",
			zap.String("model", m.spec.ID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err).WithModel(m.spec.ID)
	}

	m.provider.logger.Debug("Generate request completed",
		zap.String("model", m.spec.ID),
		zap.Int("prompt_tokens", resp.PromptEvalCount),
		zap.Int("completion_tokens", resp.EvalCount),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Response, nil
}

// Release asks Ollama to unload the model from memory.
func (m *ollamaModel) Release(ctx context.Context) error {
	keepAlive := 0
	return m.provider.post(ctx, "/api/generate", ollamaGenerateRequest{
		Model:     m.spec.ID,
		KeepAlive: &keepAlive,
	}, nil)
}

// post sends a JSON request and decodes a JSON response into out when non-nil.
func (p *OllamaProvider) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ollamaErrorResponse
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return NewError(ErrorTypeModel, "model not found", false, fmt.Errorf("%s", msg))
		}
		return ClassifyError(fmt.Errorf("ollama %s: status %d: %s", path, resp.StatusCode, msg))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return NewError(ErrorTypeUnknown, "invalid response", false, err)
	}
	return nil
}
