package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NEWSBLOG_SERVER_ADDR", "LOG_LEVEL", "NEWSBLOG_LLM_PROVIDER",
		"NEWSBLOG_LLM_MODEL", "NEWSBLOG_LLM_BASE_URL", "OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{
		"server_addr": ":9090",
		"export_dir": "out",
		"llm": {"provider": "openai", "api_key": "sk-test", "max_retries": 0}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "out", cfg.ExportDir)
	assert.Equal(t, DefaultOpenAIModel, cfg.LLM.Model)
	assert.Equal(t, 0, cfg.Retries())
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 800*time.Millisecond, cfg.ProgressInterval())
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPSEEK_KEY", "ds-key")
	path := writeFile(t, "config.yaml", `
allowed_origins:
  - http://localhost:5173
progress_interval_ms: 200
llm:
  provider: deepseek
  model: deepseek-chat
  base_url: https://api.deepseek.com
  api_key_env: DEEPSEEK_KEY
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, "ds-key", cfg.LLM.APIKey)
	assert.Equal(t, 200*time.Millisecond, cfg.ProgressInterval())
	assert.Equal(t, DefaultMaxRetries, cfg.Retries())
}

func TestLoad_MissingFileUsesDefaultsAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEWSBLOG_LLM_PROVIDER", "mock")
	t.Setenv("NEWSBLOG_SERVER_ADDR", ":7070")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, ":7070", cfg.ServerAddr)
	assert.Equal(t, DefaultExportDir, cfg.ExportDir)
}

func TestLoad_InvalidJSON(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"llm":`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		llm     LLM
		wantErr string
	}{
		{"mock", LLM{Provider: "mock"}, ""},
		{"missing provider", LLM{}, "llm config missing"},
		{"unknown provider", LLM{Provider: "claude"}, "not supported"},
		{"deepseek without url", LLM{Provider: "deepseek", Model: "m", APIKey: "k"}, "base_url"},
		{"no model", LLM{Provider: "openai", APIKey: "k"}, "model is required"},
		{"no key", LLM{Provider: "openai", Model: "m", APIKeyEnv: "X"}, "set llm.api_key or X"},
		{"ok", LLM{Provider: "openai", Model: "m", APIKey: "k"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Config{LLM: tt.llm}.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
