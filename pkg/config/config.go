package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`

	Server struct {
		Port           string   `yaml:"port"`
		MaxUploadMB    int      `yaml:"max_upload_mb"`
		TempDir        string   `yaml:"temp_dir"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	LLM struct {
		APIKey         string        `yaml:"api_key"`
		Model          string        `yaml:"model"`
		Temperature    float64       `yaml:"temperature"`
		PollInterval   time.Duration `yaml:"poll_interval"`
		PollAttempts   int           `yaml:"poll_attempts"`
		SystemTemplate string        `yaml:"system_template"`
	} `yaml:"llm"`

	Database struct {
		URL         string        `yaml:"url"`
		TableName   string        `yaml:"table_name"`
		ReuseWindow time.Duration `yaml:"reuse_window"`
	} `yaml:"database"`

	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`

	UI struct {
		Color bool `yaml:"color"`
	} `yaml:"ui"`
}

// DefaultReuseWindow applies when database.reuse_window is absent. An
// explicit 0 turns reuse off.
const DefaultReuseWindow = 24 * time.Hour

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/duo/config.yaml"),
			"/etc/duo/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// ui.color and database.reuse_window keep their defaults unless the
	// file sets them, so an explicit false or 0s is honored
	config := Config{}
	config.UI.Color = true
	config.Database.ReuseWindow = DefaultReuseWindow
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	config.UI.Color = true
	config.Database.ReuseWindow = DefaultReuseWindow
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.API.BaseURL == "" {
		config.API.BaseURL = "http://localhost:4000"
	}

	if config.Server.Port == "" {
		config.Server.Port = "4000"
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = 50
	}
	if config.Server.TempDir == "" {
		config.Server.TempDir = os.TempDir()
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}

	if config.LLM.Model == "" {
		config.LLM.Model = "gemini-2.5-flash"
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.6
	}
	if config.LLM.PollInterval == 0 {
		config.LLM.PollInterval = time.Second
	}
	if config.LLM.PollAttempts == 0 {
		config.LLM.PollAttempts = 60
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "indexed_documents"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("DUO_API_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	// GEMINI_API_KEY wins when both are set
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if level := os.Getenv("DUO_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}

// MaxUploadBytes is the per-file size limit the backend enforces.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) * 1024 * 1024
}
