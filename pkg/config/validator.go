package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the settings both binaries share.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate API config
	if c.API.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "api.base_url",
			Message: "backend base URL is required",
		})
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "api.base_url",
			Message: "invalid backend base URL",
		})
	}

	if c.API.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "api.timeout",
			Message: "timeout cannot be negative",
		})
	}

	// Validate Server config
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("invalid port: %s", c.Server.Port),
		})
	}

	if c.Server.MaxUploadMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.max_upload_mb",
			Message: "max_upload_mb must be positive",
		})
	}

	for _, origin := range c.Server.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errors = append(errors, ValidationError{
				Field:   "server.allowed_origins",
				Message: fmt.Sprintf("invalid origin format: %s", origin),
			})
		}
	}

	// Validate LLM config
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.PollInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.poll_interval",
			Message: "poll_interval must be positive",
		})
	}

	if c.LLM.PollAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.poll_attempts",
			Message: "poll_attempts must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.ReuseWindow < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.reuse_window",
			Message: "reuse_window cannot be negative",
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown log level: %s", c.Log.Level),
		})
	}

	return errors
}

// ValidateServer adds the checks only the backend needs.
func (c *Config) ValidateServer() []ValidationError {
	errors := c.Validate()
	if c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "Gemini API key is required (set GEMINI_API_KEY)",
		})
	}
	return errors
}
