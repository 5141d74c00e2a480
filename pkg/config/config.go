package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/offerwell/intent-bench/pkg/llm"
	"github.com/offerwell/intent-bench/pkg/retry"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "config.yaml"

// maxSheetNameLen is the spreadsheet limit on worksheet names.
const maxSheetNameLen = 31

// Config holds all configuration for intent-bench.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys) must only come from environment variables.
type Config struct {
	Version string `yaml:"-"` // Set at load time, not from config

	// Logging
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"console"` // console or json

	// SuitePath selects a suite file. Empty uses the embedded real-estate suite.
	SuitePath string `yaml:"suite_path" env:"SUITE_PATH" env-default:""`

	// OutputPath is the spreadsheet written at the end of a run.
	OutputPath string       `yaml:"output_path" env:"OUTPUT_PATH" env-default:"RealEstate_Production_Benchmark.xlsx"`
	Sheets     SheetsConfig `yaml:"sheets"`

	// Generation
	MaxTokens      int `yaml:"max_tokens" env:"MAX_TOKENS" env-default:"500"`
	RawOutputLimit int `yaml:"raw_output_limit" env:"RAW_OUTPUT_LIMIT" env-default:"500"`
	Concurrency    int `yaml:"concurrency" env:"CONCURRENCY" env-default:"1"` // 1 is strictly sequential
	ProgressEvery  int `yaml:"progress_every" env:"PROGRESS_EVERY" env-default:"15"`

	// LoadRetries bounds retries of transient model load failures. Generation is never retried.
	LoadRetries int `yaml:"load_retries" env:"LOAD_RETRIES" env-default:"2"`

	// TranscriptDir, when set, receives every prompt and full response as text files.
	TranscriptDir string `yaml:"transcript_dir" env:"TRANSCRIPT_DIR" env-default:""`

	// MetricsAddr serves Prometheus metrics while the run is in progress, e.g. ":9090".
	// Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR" env-default:""`

	// Backend endpoints
	Ollama    OllamaConfig    `yaml:"ollama"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`

	// Models overrides the suite's roster when non-empty.
	Models []llm.ModelSpec `yaml:"models"`
}

// SheetsConfig names the worksheets of the report.
type SheetsConfig struct {
	Raw         string `yaml:"raw" env:"SHEET_RAW" env-default:"Raw Data"`
	Comparison  string `yaml:"comparison" env:"SHEET_COMPARISON" env-default:"Logic Comparison"`
	Latency     string `yaml:"latency" env:"SHEET_LATENCY" env-default:"Latency Comparison"`
	Leaderboard string `yaml:"leaderboard" env:"SHEET_LEADERBOARD" env-default:"Leaderboard"`
	Run         string `yaml:"run" env:"SHEET_RUN" env-default:"Run"`
}

// Names returns the sheet names in workbook order.
func (s SheetsConfig) Names() []string {
	return []string{s.Raw, s.Comparison, s.Latency, s.Leaderboard, s.Run}
}

// OllamaConfig holds the local Ollama endpoint.
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url" env:"OLLAMA_BASE_URL" env-default:"http://localhost:11434"`
	PullMissing    bool   `yaml:"pull_missing" env:"OLLAMA_PULL_MISSING" env-default:"false"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"OLLAMA_TIMEOUT_SECONDS" env-default:"300"`
}

// Timeout returns the HTTP timeout as a duration.
func (c OllamaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OpenAIConfig holds an OpenAI-compatible endpoint such as mlx_lm.server or vLLM.
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:"http://localhost:8080/v1"`
	APIKey  string `yaml:"-" env:"OPENAI_API_KEY"` // Secret - not in YAML
}

// AnthropicConfig holds the hosted Anthropic endpoint. The backend is only
// registered when an API key is present.
type AnthropicConfig struct {
	BaseURL string `yaml:"base_url" env:"ANTHROPIC_BASE_URL" env-default:""`
	APIKey  string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
}

// Load reads configuration from path with environment variable overrides.
// An empty path reads the environment only. A .env file in the working directory,
// if present, fills in variables that are not already set.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	_ = godotenv.Load()

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// Backends on the host stay reachable from inside a container.
	cfg.Ollama.BaseURL = ResolveURLForDocker(cfg.Ollama.BaseURL)
	cfg.OpenAI.BaseURL = ResolveURLForDocker(cfg.OpenAI.BaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges, sheet names and any configured roster.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return fmt.Errorf("output_path is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.LoadRetries < 0 {
		return fmt.Errorf("load_retries must not be negative, got %d", c.LoadRetries)
	}
	if err := c.validateSheets(); err != nil {
		return err
	}
	return validateRoster(c.Models)
}

func (c *Config) validateSheets() error {
	seen := make(map[string]bool)
	for _, name := range c.Sheets.Names() {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("sheet names must not be empty")
		}
		if len([]rune(name)) > maxSheetNameLen {
			return fmt.Errorf("sheet name %q exceeds %d characters", name, maxSheetNameLen)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("duplicate sheet name %q", name)
		}
		seen[key] = true
	}
	return nil
}

func validateRoster(specs []llm.ModelSpec) error {
	for i, m := range specs {
		if m.ID == "" {
			return fmt.Errorf("models[%d]: id is required", i)
		}
		if !llm.IsKnownBackend(m.Backend) {
			return fmt.Errorf("models[%d] %s: unknown backend %q", i, m.ID, m.Backend)
		}
		if !llm.IsKnownTemplate(m.Template) {
			return fmt.Errorf("models[%d] %s: unknown template %q", i, m.ID, m.Template)
		}
	}
	return llm.CheckRoster(specs)
}

// Roster returns the configured models, falling back to the suite's own roster.
// An empty result is an error: there is nothing to benchmark.
func (c *Config) Roster(suiteModels []llm.ModelSpec) ([]llm.ModelSpec, error) {
	roster := c.Models
	if len(roster) == 0 {
		roster = suiteModels
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("no models configured: set models in config or in the suite")
	}
	if err := validateRoster(roster); err != nil {
		return nil, err
	}
	out := make([]llm.ModelSpec, len(roster))
	copy(out, roster)
	return out, nil
}

// LoadRetryConfig returns the backoff used when acquiring models.
func (c *Config) LoadRetryConfig() *retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = c.LoadRetries
	return cfg
}
