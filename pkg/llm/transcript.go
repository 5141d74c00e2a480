package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const transcriptRule = "================================================================================"

// TranscriptWriter saves every prompt and its response (or error) to a directory,
// one file each, sharing a timestamp and transcript id prefix. Write failures are
// logged and never fail the generation.
type TranscriptWriter struct {
	dir    string
	logger *zap.Logger
}

// NewTranscriptWriter creates dir if needed.
func NewTranscriptWriter(dir string, logger *zap.Logger) (*TranscriptWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript dir %s: %w", dir, err)
	}
	return &TranscriptWriter{
		dir:    dir,
		logger: logger.Named("llm.transcript"),
	}, nil
}

// Dir returns the directory transcripts are written to.
func (w *TranscriptWriter) Dir() string {
	return w.dir
}

// writeRequest writes the prompt before the call. Returns the file prefix shared
// with the matching response or error file.
func (w *TranscriptWriter) writeRequest(ctx context.Context, id uuid.UUID, model string, prompt Prompt, maxTokens int) string {
	prefix := fmt.Sprintf("%s_%s", time.Now().Format("2006-01-02_15-04-05.000"), id.String())

	var b strings.Builder
	w.writeHeader(&b, id, model, "REQUEST", GetContext(ctx))
	fmt.Fprintf(&b, "MAX_TOKENS: %d\n\n", maxTokens)
	b.WriteString("=== TURNS ===\n")
	for _, t := range prompt.Turns {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", t.Role, t.Content)
	}
	b.WriteString("=== RENDERED PROMPT ===\n")
	b.WriteString(prompt.Text)
	b.WriteString("\n")

	w.save(prefix+"_request.txt", b.String())
	return prefix
}

// writeResult writes the response or error after the call.
func (w *TranscriptWriter) writeResult(prefix string, id uuid.UUID, model, kind, body string, duration time.Duration) {
	var b strings.Builder
	w.writeHeader(&b, id, model, strings.ToUpper(kind), nil)
	fmt.Fprintf(&b, "DURATION: %dms\n\n", duration.Milliseconds())
	b.WriteString(body)
	b.WriteString("\n")

	w.save(prefix+"_"+kind+".txt", b.String())
}

func (w *TranscriptWriter) writeHeader(b *strings.Builder, id uuid.UUID, model, kind string, labels map[string]any) {
	b.WriteString(transcriptRule + "\n")
	fmt.Fprintf(b, "TIMESTAMP: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(b, "MODEL: %s\n", model)
	fmt.Fprintf(b, "TRANSCRIPT_ID: %s\n", id.String())
	fmt.Fprintf(b, "TYPE: %s\n", kind)

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s: %v\n", strings.ToUpper(k), labels[k])
	}
	b.WriteString(transcriptRule + "\n")
}

func (w *TranscriptWriter) save(name, content string) {
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		w.logger.Warn("Failed to write transcript", zap.String("path", path), zap.Error(err))
	}
}

// RecordingProvider wraps a ModelProvider so every model it loads records transcripts.
type RecordingProvider struct {
	inner  ModelProvider
	writer *TranscriptWriter
}

// NewRecordingProvider creates a recording wrapper around a ModelProvider.
func NewRecordingProvider(inner ModelProvider, writer *TranscriptWriter) *RecordingProvider {
	return &RecordingProvider{inner: inner, writer: writer}
}

// Load implements ModelProvider.
func (p *RecordingProvider) Load(ctx context.Context, spec ModelSpec) (Model, error) {
	m, err := p.inner.Load(ctx, spec)
	if err != nil {
		return nil, err
	}
	return &recordingModel{Model: m, writer: p.writer}, nil
}

type recordingModel struct {
	Model
	writer *TranscriptWriter
}

// Generate calls the inner model and records the exchange.
func (m *recordingModel) Generate(ctx context.Context, prompt Prompt, maxTokens int) (string, error) {
	id := uuid.New()
	model := m.Spec().ID
	prefix := m.writer.writeRequest(ctx, id, model, prompt, maxTokens)

	start := time.Now()
	response, err := m.Model.Generate(ctx, prompt, maxTokens)
	duration := time.Since(start)

	if err != nil {
		m.writer.writeResult(prefix, id, model, "error", err.Error(), duration)
	} else {
		m.writer.writeResult(prefix, id, model, "response", response, duration)
	}
	return response, err
}

// Release releases the inner model when it supports it.
func (m *recordingModel) Release(ctx context.Context) error {
	if r, ok := m.Model.(Releaser); ok {
		return r.Release(ctx)
	}
	return nil
}

var (
	_ ModelProvider = (*RecordingProvider)(nil)
	_ Releaser      = (*recordingModel)(nil)
)
