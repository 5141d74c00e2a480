package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/offerwell/intent-bench/pkg/apperrors"
)

func TestModelSpec_ShortName(t *testing.T) {
	assert.Equal(t, "Qwen2.5-7B-Instruct-4bit", ModelSpec{ID: "mlx-community/Qwen2.5-7B-Instruct-4bit"}.ShortName())
	assert.Equal(t, "qwen2.5:0.5b", ModelSpec{ID: "qwen2.5:0.5b"}.ShortName())
	assert.Equal(t, "qwen", ModelSpec{ID: "org/qwen", Name: "qwen"}.ShortName())
	assert.Equal(t, "org/", ModelSpec{ID: "org/"}.ShortName())
}

func TestCheckRoster(t *testing.T) {
	tests := []struct {
		name    string
		specs   []ModelSpec
		wantErr bool
	}{
		{"empty", nil, false},
		{"distinct", []ModelSpec{{ID: "a/qwen"}, {ID: "a/phi"}}, false},
		{"same id", []ModelSpec{{ID: "a/qwen"}, {ID: "a/qwen"}}, true},
		{"same short name", []ModelSpec{{ID: "a/qwen"}, {ID: "b/qwen"}}, true},
		{"name collides with derived name", []ModelSpec{{ID: "a/qwen"}, {ID: "b/phi", Name: "qwen"}}, true},
		{"name disambiguates", []ModelSpec{{ID: "a/qwen"}, {ID: "b/qwen", Name: "qwen-b"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRoster(tt.specs)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrDuplicateModel)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
