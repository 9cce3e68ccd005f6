// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type APIConfig struct {
	URL        string        `yaml:"url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type LLMConfig struct {
	Provider      string  `yaml:"provider"` // ollama | openai | gemini
	OllamaURL     string  `yaml:"ollama_url"`
	Model         string  `yaml:"model"`
	OpenAIKey     string  `yaml:"openai_key"`
	OpenAIBaseURL string  `yaml:"openai_base_url"`
	GeminiKey     string  `yaml:"gemini_key"`
	GeminiURL     string  `yaml:"gemini_url"`
	MinConfidence float64 `yaml:"min_confidence"`
}

type WorkerConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	BatchSize     int           `yaml:"batch_size"`
	ClaimMessages bool          `yaml:"claim_messages"`
}

type AdminConfig struct {
	Port   int    `yaml:"port"` // 0 disables the admin server
	APIKey string `yaml:"api_key"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type Config struct {
	API    APIConfig    `yaml:"api"`
	LLM    LLMConfig    `yaml:"llm"`
	Worker WorkerConfig `yaml:"worker"`
	Admin  AdminConfig  `yaml:"admin"`
	Log    LogConfig    `yaml:"log"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Load builds the process configuration: defaults, then the optional yaml
// file, then a .env file if present, then environment overrides. Loaded
// once per process and passed by reference into constructors.
func Load(path string, dev bool) (*Config, error) {
	cfg := defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case os.IsNotExist(err):
			// env-only deployments carry no config file
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// .env is a developer convenience; a missing file is fine.
	_ = godotenv.Load()

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.API.Token == "" {
		return nil, errors.New("api.token is required (JOB_COPILOT_API_TOKEN)")
	}
	if cfg.Worker.BatchSize <= 0 {
		cfg.Worker.BatchSize = 10
	}
	if cfg.API.MaxRetries <= 0 {
		cfg.API.MaxRetries = 3
	}
	if cfg.LLM.MinConfidence < 0 {
		cfg.LLM.MinConfidence = 0
	}
	if cfg.LLM.MinConfidence > 1 {
		cfg.LLM.MinConfidence = 1
	}

	cfg.Runtime.Dev = dev
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		API: APIConfig{
			URL:        "http://localhost:3000/api/v1",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		LLM: LLMConfig{
			Provider:      "ollama",
			OllamaURL:     "http://localhost:11434",
			Model:         "llama3.1",
			MinConfidence: 0.5,
		},
		Worker: WorkerConfig{
			PollInterval:  15 * time.Second,
			BatchSize:     10,
			ClaimMessages: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func applyEnv(cfg *Config) error {
	setString(&cfg.API.URL, "JOB_COPILOT_API_URL")
	setString(&cfg.API.Token, "JOB_COPILOT_API_TOKEN")
	setString(&cfg.LLM.OllamaURL, "OLLAMA_URL")
	setString(&cfg.LLM.Model, "OLLAMA_MODEL")
	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.OpenAIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.LLM.GeminiKey, "GEMINI_API_KEY")
	setString(&cfg.LLM.GeminiURL, "GEMINI_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Admin.APIKey, "ADMIN_API_KEY")

	if err := setSeconds(&cfg.Worker.PollInterval, "POLL_INTERVAL_SECONDS"); err != nil {
		return err
	}
	if err := setSeconds(&cfg.API.Timeout, "HTTP_TIMEOUT_SECONDS"); err != nil {
		return err
	}
	if err := setInt(&cfg.Worker.BatchSize, "BATCH_SIZE"); err != nil {
		return err
	}
	if err := setInt(&cfg.API.MaxRetries, "MAX_RETRIES"); err != nil {
		return err
	}
	if err := setInt(&cfg.Admin.Port, "ADMIN_PORT"); err != nil {
		return err
	}
	if err := setFloat(&cfg.LLM.MinConfidence, "LLM_MIN_CONFIDENCE"); err != nil {
		return err
	}
	if err := setBool(&cfg.Worker.ClaimMessages, "CLAIM_MESSAGES"); err != nil {
		return err
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

// setSeconds parses a float number of seconds, matching the original
// environment contract (e.g. POLL_INTERVAL_SECONDS=15.0).
func setSeconds(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = time.Duration(f * float64(time.Second))
	return nil
}
