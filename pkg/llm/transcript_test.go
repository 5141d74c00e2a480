package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readTranscripts(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	files := make(map[string]string, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		files[e.Name()] = string(data)
	}
	return files
}

func suffixes(files map[string]string) []string {
	var out []string
	for name := range files {
		out = append(out, name[strings.LastIndex(name, "_")+1:])
	}
	sort.Strings(out)
	return out
}

func TestRecordingProvider_WritesRequestAndResponse(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "transcripts")
	writer, err := NewTranscriptWriter(dir, zap.NewNop())
	require.NoError(t, err)

	inner := NewMockModelProvider()
	mock := NewMockModel("org/qwen")
	mock.GenerateFunc = func(ctx context.Context, p Prompt, maxTokens int) (string, error) {
		return `{"filters": {}}`, nil
	}
	inner.Models["org/qwen"] = mock

	provider := NewRecordingProvider(inner, writer)
	model, err := provider.Load(context.Background(), ModelSpec{ID: "org/qwen"})
	require.NoError(t, err)

	prompt, err := model.Format(sampleTurns)
	require.NoError(t, err)

	ctx := WithContext(context.Background(), map[string]any{"run_id": "run-1"})
	ctx = WithTrialContext(ctx, "qwen", 7)
	out, err := model.Generate(ctx, prompt, 500)
	require.NoError(t, err)
	assert.Equal(t, `{"filters": {}}`, out)

	files := readTranscripts(t, dir)
	require.Len(t, files, 2)
	assert.Equal(t, []string{"request.txt", "response.txt"}, suffixes(files))

	for name, content := range files {
		assert.Contains(t, content, "MODEL: org/qwen")
		if strings.HasSuffix(name, "_request.txt") {
			assert.Contains(t, content, "TYPE: REQUEST")
			assert.Contains(t, content, "RUN_ID: run-1")
			assert.Contains(t, content, "QUERY_INDEX: 7")
			assert.Contains(t, content, "MAX_TOKENS: 500")
			assert.Contains(t, content, "Map this: 'house with a pool'")
			assert.Contains(t, content, "<|im_start|>system")
		} else {
			assert.Contains(t, content, "TYPE: RESPONSE")
			assert.Contains(t, content, `{"filters": {}}`)
		}
	}
}

func TestRecordingProvider_WritesError(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewTranscriptWriter(dir, zap.NewNop())
	require.NoError(t, err)

	inner := NewMockModelProvider()
	mock := NewMockModel("org/qwen")
	mock.GenerateFunc = func(ctx context.Context, p Prompt, maxTokens int) (string, error) {
		return "", errors.New("backend exploded")
	}
	inner.Models["org/qwen"] = mock

	model, err := NewRecordingProvider(inner, writer).Load(context.Background(), ModelSpec{ID: "org/qwen"})
	require.NoError(t, err)

	_, err = model.Generate(context.Background(), PlainUserPrompt("hi"), 10)
	require.EqualError(t, err, "backend exploded")

	files := readTranscripts(t, dir)
	assert.Equal(t, []string{"error.txt", "request.txt"}, suffixes(files))
	for name, content := range files {
		if strings.HasSuffix(name, "_error.txt") {
			assert.Contains(t, content, "TYPE: ERROR")
			assert.Contains(t, content, "backend exploded")
		}
	}
}

func TestRecordingProvider_LoadErrorPassesThrough(t *testing.T) {
	writer, err := NewTranscriptWriter(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	inner := NewMockModelProvider()
	inner.LoadFunc = func(ctx context.Context, spec ModelSpec) (Model, error) {
		return nil, errors.New("not found")
	}

	model, err := NewRecordingProvider(inner, writer).Load(context.Background(), ModelSpec{ID: "x"})
	assert.Nil(t, model)
	assert.EqualError(t, err, "not found")
}

func TestRecordingModel_ReleasesInner(t *testing.T) {
	writer, err := NewTranscriptWriter(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	inner := NewMockModelProvider()
	mock := NewMockModel("org/qwen")
	inner.Models["org/qwen"] = mock

	model, err := NewRecordingProvider(inner, writer).Load(context.Background(), ModelSpec{ID: "org/qwen"})
	require.NoError(t, err)

	releaser, ok := model.(Releaser)
	require.True(t, ok)
	require.NoError(t, releaser.Release(context.Background()))
	assert.Equal(t, 1, mock.ReleaseCalls())
	assert.Equal(t, "org/qwen", model.Spec().ID)
}
