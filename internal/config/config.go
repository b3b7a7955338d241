package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobimpact/internal/retry"
)

// Config is the root configuration for a jobimpact sweep.
type Config struct {
	JobsFile      string   `validate:"required"`
	OutputDir     string   `validate:"required"`
	Database      string   `validate:"required"`
	Models        []string `validate:"min=1,dive,required"`
	SchemaVersion string   `validate:"oneof=v1 v2"`
	Concurrency   ConcurrencyConfig
	Retry         RetryConfig
	Generation    GenerationConfig
	Providers     ProvidersConfig
	Notification  NotificationConfig
}

// ConcurrencyConfig bounds in-flight requests per provider family.
type ConcurrencyConfig struct {
	Default   int            `validate:"min=1"`
	Overrides map[string]int `validate:"dive,min=1"`
}

// RetryConfig controls backoff on rate-limited requests.
type RetryConfig struct {
	MaxAttempts int           `validate:"min=1"`
	BaseDelay   time.Duration `validate:"gt=0"`
	MaxDelay    time.Duration `validate:"gtefield=BaseDelay"`
	Jitter      float64       `validate:"min=0,max=1"`
}

// GenerationConfig holds the per-request output bound and sampling seed.
type GenerationConfig struct {
	MaxTokens int `validate:"min=1"`
	Seed      int
}

// ProvidersConfig overrides provider endpoints. Empty means the provider default.
type ProvidersConfig struct {
	OpenRouterBaseURL string `yaml:"openrouter_base_url" validate:"omitempty,url"`
	CohereBaseURL     string `yaml:"cohere_base_url" validate:"omitempty,url"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type" validate:"omitempty,oneof=log slack"` // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"`                                // required if type is "slack"
}

// Credentials are provider API keys read from the environment.
type Credentials struct {
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	CohereAPIKey     string `env:"COHERE_API_KEY"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
}

// Retry profiles.
const (
	ProfileDefault = "default" // 5 attempts, 10s doubling to 160s
	ProfileBounded = "bounded" // 10 attempts, 4s doubling to 10s
)

// DefaultModels is the sweep used when the config names none.
var DefaultModels = []string{
	"openai/gpt-5",
	"anthropic/claude-4.5-sonnet",
	"google/gemini-3-flash-preview",
	"x-ai/grok-4",
	"command-a-reasoning-08-2025",
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		JobsFile:      "jobs.txt",
		OutputDir:     "results",
		Database:      "jobimpact.db",
		Models:        append([]string(nil), DefaultModels...),
		SchemaVersion: "v2",
		Concurrency: ConcurrencyConfig{
			Default:   10,
			Overrides: map[string]int{"cohere": 2},
		},
		Retry:      retryProfile(ProfileDefault),
		Generation: GenerationConfig{MaxTokens: 1024, Seed: 42},
		Notification: NotificationConfig{
			Type: "log",
		},
	}
}

func retryProfile(name string) RetryConfig {
	p := retry.DefaultPolicy()
	if name == ProfileBounded {
		p = retry.BoundedPolicy()
	}
	return RetryConfig{MaxAttempts: p.MaxAttempts, BaseDelay: p.BaseDelay, MaxDelay: p.MaxDelay, Jitter: p.Jitter}
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	JobsFile      string             `yaml:"jobs_file"`
	OutputDir     string             `yaml:"output_dir"`
	Database      string             `yaml:"database"`
	Models        []string           `yaml:"models"`
	SchemaVersion string             `yaml:"schema_version"`
	Concurrency   rawConcurrency     `yaml:"concurrency"`
	Retry         rawRetryConfig     `yaml:"retry"`
	Generation    rawGeneration      `yaml:"generation"`
	Providers     ProvidersConfig    `yaml:"providers"`
	Notification  NotificationConfig `yaml:"notification"`
}

type rawConcurrency struct {
	Default   int            `yaml:"default"`
	Overrides map[string]int `yaml:"overrides"`
}

type rawRetryConfig struct {
	Profile     string   `yaml:"profile"`
	MaxAttempts int      `yaml:"max_attempts"`
	BaseDelay   string   `yaml:"base_delay"`
	MaxDelay    string   `yaml:"max_delay"`
	Jitter      *float64 `yaml:"jitter"`
}

type rawGeneration struct {
	MaxTokens int  `yaml:"max_tokens"`
	Seed      *int `yaml:"seed"`
}

// Load reads and parses the YAML config file at path, fills defaults, validates
// it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// LoadOptional behaves like Load but returns the defaults when path does not exist.
func LoadOptional(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Parse builds a Config from YAML text. Environment variables are expanded first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if raw.JobsFile != "" {
		cfg.JobsFile = raw.JobsFile
	}
	if raw.OutputDir != "" {
		cfg.OutputDir = raw.OutputDir
	}
	if raw.Database != "" {
		cfg.Database = raw.Database
	}
	if len(raw.Models) > 0 {
		cfg.Models = trimAll(raw.Models)
	}
	if raw.SchemaVersion != "" {
		cfg.SchemaVersion = strings.ToLower(raw.SchemaVersion)
	}

	if raw.Concurrency.Default != 0 {
		cfg.Concurrency.Default = raw.Concurrency.Default
	}
	for provider, n := range raw.Concurrency.Overrides {
		cfg.Concurrency.Overrides[provider] = n
	}

	if raw.Retry.Profile != "" {
		if raw.Retry.Profile != ProfileDefault && raw.Retry.Profile != ProfileBounded {
			return nil, fmt.Errorf("retry.profile must be %q or %q, got %q", ProfileDefault, ProfileBounded, raw.Retry.Profile)
		}
		cfg.Retry = retryProfile(raw.Retry.Profile)
	}
	if raw.Retry.MaxAttempts != 0 {
		cfg.Retry.MaxAttempts = raw.Retry.MaxAttempts
	}
	if raw.Retry.BaseDelay != "" {
		d, err := time.ParseDuration(raw.Retry.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("parse retry.base_delay %q: %w", raw.Retry.BaseDelay, err)
		}
		cfg.Retry.BaseDelay = d
	}
	if raw.Retry.MaxDelay != "" {
		d, err := time.ParseDuration(raw.Retry.MaxDelay)
		if err != nil {
			return nil, fmt.Errorf("parse retry.max_delay %q: %w", raw.Retry.MaxDelay, err)
		}
		cfg.Retry.MaxDelay = d
	}
	if raw.Retry.Jitter != nil {
		cfg.Retry.Jitter = *raw.Retry.Jitter
	}

	if raw.Generation.MaxTokens != 0 {
		cfg.Generation.MaxTokens = raw.Generation.MaxTokens
	}
	if raw.Generation.Seed != nil {
		cfg.Generation.Seed = *raw.Generation.Seed
	}

	cfg.Providers = raw.Providers
	if raw.Notification.Type != "" {
		cfg.Notification = raw.Notification
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCredentials reads provider API keys from the environment.
func LoadCredentials() (Credentials, error) {
	var c Credentials
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse credentials: %w", err)
	}
	return c, nil
}

// Missing lists the environment variables without a value among those needed
// by the given provider families.
func (c Credentials) Missing(families ...string) []string {
	var out []string
	for _, f := range families {
		switch f {
		case "openrouter":
			if c.OpenRouterAPIKey == "" {
				out = append(out, "OPENROUTER_API_KEY")
			}
		case "cohere":
			if c.CohereAPIKey == "" {
				out = append(out, "COHERE_API_KEY")
			}
		case "gemini":
			if c.GeminiAPIKey == "" {
				out = append(out, "GEMINI_API_KEY")
			}
		}
	}
	return out
}

var structValidator = validator.New()

func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Models))
	for _, m := range cfg.Models {
		if seen[m] {
			return fmt.Errorf("models: %q listed twice", m)
		}
		seen[m] = true
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	}

	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
