// Package config loads the application configuration from a JSON or YAML
// file, a .env file and environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerAddr            string   `json:"server_addr,omitempty" yaml:"server_addr,omitempty"`
	LogLevel              string   `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	ExportDir             string   `json:"export_dir,omitempty" yaml:"export_dir,omitempty"`
	AllowedOrigins        []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
	RequestTimeoutSeconds int      `json:"request_timeout_seconds,omitempty" yaml:"request_timeout_seconds,omitempty"`
	ProgressIntervalMS    int      `json:"progress_interval_ms,omitempty" yaml:"progress_interval_ms,omitempty"`
	LLM                   LLM      `json:"llm" yaml:"llm"`
}

// LLM 生成模块的模型配置。
type LLM struct {
	Provider   string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv  string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	MaxRetries *int   `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

const (
	DefaultServerAddr     = ":8080"
	DefaultExportDir      = "exports"
	DefaultRequestTimeout = 120
	DefaultProgressMS     = 800
	DefaultMaxRetries     = 1
	DefaultAPIKeyEnv      = "OPENAI_API_KEY"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// Load reads path (JSON, or YAML for .yaml/.yml) and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := decode(path, data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyEnv(cfg *Config) {
	cfg.ServerAddr = getEnv("NEWSBLOG_SERVER_ADDR", cfg.ServerAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LLM.Provider = getEnv("NEWSBLOG_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("NEWSBLOG_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("NEWSBLOG_LLM_BASE_URL", cfg.LLM.BaseURL)

	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = DefaultServerAddr
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = DefaultExportDir
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = DefaultRequestTimeout
	}
	if cfg.ProgressIntervalMS <= 0 {
		cfg.ProgressIntervalMS = DefaultProgressMS
	}
	if cfg.LLM.MaxRetries == nil {
		n := DefaultMaxRetries
		cfg.LLM.MaxRetries = &n
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultOpenAIModel
	}
}

// Validate checks the LLM section the same way the client constructors will.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "mock":
		return nil
	case "openai", "deepseek":
	case "":
		return errors.New("llm config missing; please set llm.provider/model/api_key_env in config")
	default:
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	if c.LLM.Provider == "deepseek" && c.LLM.BaseURL == "" {
		return errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
	}
	if c.LLM.Model == "" {
		return errors.New("llm model is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm api key missing; set llm.api_key or %s", c.LLM.APIKeyEnv)
	}
	if c.Retries() < 0 {
		return errors.New("llm.max_retries must not be negative")
	}
	return nil
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressIntervalMS) * time.Millisecond
}

func (c Config) Retries() int {
	if c.LLM.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.LLM.MaxRetries
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
