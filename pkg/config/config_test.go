package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
api:
  base_url: "http://backend.local:4000"
  timeout: 30s

server:
  port: "5000"
  max_upload_mb: 20
  allowed_origins:
    - "http://localhost:3000"

llm:
  model: "gemini-2.5-pro"
  temperature: 0.2
  poll_interval: 2s
  poll_attempts: 10

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_docs"
  reuse_window: 1h

log:
  level: debug
  file: "/tmp/duo.log"

ui:
  color: false
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://backend.local:4000", config.API.BaseURL)
	assert.Equal(t, 30*time.Second, config.API.Timeout)
	assert.Equal(t, "5000", config.Server.Port)
	assert.Equal(t, int64(20*1024*1024), config.MaxUploadBytes())
	assert.Equal(t, []string{"http://localhost:3000"}, config.Server.AllowedOrigins)
	assert.Equal(t, "gemini-2.5-pro", config.LLM.Model)
	assert.Equal(t, 0.2, config.LLM.Temperature)
	assert.Equal(t, 2*time.Second, config.LLM.PollInterval)
	assert.Equal(t, 10, config.LLM.PollAttempts)
	assert.Equal(t, "test_docs", config.Database.TableName)
	assert.Equal(t, time.Hour, config.Database.ReuseWindow)
	assert.Equal(t, "debug", config.Log.Level)
	assert.False(t, config.UI.Color)
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  level: warn\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000", config.API.BaseURL)
	assert.Equal(t, time.Duration(0), config.API.Timeout)
	assert.Equal(t, "4000", config.Server.Port)
	assert.Equal(t, 50, config.Server.MaxUploadMB)
	assert.Equal(t, []string{"*"}, config.Server.AllowedOrigins)
	assert.Equal(t, "gemini-2.5-flash", config.LLM.Model)
	assert.Equal(t, 0.6, config.LLM.Temperature)
	assert.Equal(t, time.Second, config.LLM.PollInterval)
	assert.Equal(t, 60, config.LLM.PollAttempts)
	assert.Equal(t, DefaultReuseWindow, config.Database.ReuseWindow)
	assert.Equal(t, "warn", config.Log.Level)
	assert.True(t, config.UI.Color)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigReuseDisabled(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("database:\n  reuse_window: 0s\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), config.Database.ReuseWindow)
	assert.Equal(t, "indexed_documents", config.Database.TableName)
	assert.Empty(t, config.Validate())
}

func TestDefaultConfigReuseWindow(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, config.Database.ReuseWindow)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		var c Config
		applyDefaults(&c)
		return c
	}

	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "invalid config",
			mutate: func(c *Config) {
				c.API.BaseURL = "localhost:4000"
				c.Server.Port = "99999"
				c.LLM.Temperature = 3.0
				c.LLM.PollAttempts = -1
				c.Log.Level = "loud"
			},
			errorMessages: []string{
				"api.base_url: invalid backend base URL",
				"server.port: invalid port: 99999",
				"llm.temperature: temperature must be between 0 and 2",
				"llm.poll_attempts: poll_attempts must be positive",
				"log.level: unknown log level: loud",
			},
		},
		{
			name: "bad origin",
			mutate: func(c *Config) {
				c.Server.AllowedOrigins = []string{"*", "example.com"}
			},
			errorMessages: []string{
				"server.allowed_origins: invalid origin format: example.com",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)

			errors := config.Validate()
			require.Len(t, errors, len(tt.errorMessages))
			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestValidateServerRequiresAPIKey(t *testing.T) {
	var config Config
	applyDefaults(&config)

	errors := config.ValidateServer()
	require.Len(t, errors, 1)
	assert.Equal(t, "llm.api_key", errors[0].Field)

	config.LLM.APIKey = "key"
	assert.Empty(t, config.ValidateServer())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DUO_API_URL", "http://env-backend:4000")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("PORT", "8088")
	t.Setenv("DUO_LOG_LEVEL", "debug")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-backend:4000", config.API.BaseURL)
	assert.Equal(t, "gemini-key", config.LLM.APIKey)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "8088", config.Server.Port)
	assert.Equal(t, "debug", config.Log.Level)
}
