// Package config loads application configuration from a YAML file,
// REDFLAG_* environment variables and built-in defaults, in that order of
// increasing precedence for env vars over file values.
package config

import (
	"fmt"
	"strings"

	"github.com/redflag-advisory-server/internal/domain"
	"github.com/spf13/viper"
)

// Manager loads and validates the application configuration using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/redflag-advisory-server/")

	viper.SetEnvPrefix("REDFLAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional, defaults and env vars carry the rest.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Rule source defaults: empty paths select the embedded rule files.
	viper.SetDefault("rules.primary_path", "")
	viper.SetDefault("rules.fallback_path", "")

	// Matcher defaults
	viper.SetDefault("matcher.negation_window", 5)
	viper.SetDefault("matcher.negation_cues", []string{"no", "not", "denies", "verneint", "keine", "ohne"})
	viper.SetDefault("matcher.breakers", []string{"but", "jedoch", "aber"})
	viper.SetDefault("matcher.cache_size", 512)

	// Model provider defaults
	viper.SetDefault("model.enabled", false)
	viper.SetDefault("model.base_url", "https://api.openai.com/v1")
	viper.SetDefault("model.api_key", "")
	viper.SetDefault("model.model", "gpt-4o-mini")
	viper.SetDefault("model.timeout", "20s")
	viper.SetDefault("model.rate_limit", 2)
	viper.SetDefault("model.burst", 2)

	// Audit defaults
	viper.SetDefault("audit.enabled", true)
	viper.SetDefault("audit.driver", "sqlite")
	viper.SetDefault("audit.dsn", "redflag_audit.db")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetMatcherConfig returns matcher configuration
func (m *Manager) GetMatcherConfig() *domain.MatcherConfig {
	return &m.config.Matcher
}

// GetModelConfig returns model provider configuration
func (m *Manager) GetModelConfig() *domain.ModelConfig {
	return &m.config.Model
}

// GetAuditConfig returns audit store configuration
func (m *Manager) GetAuditConfig() *domain.AuditConfig {
	return &m.config.Audit
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Matcher.NegationWindow < 0 {
		return fmt.Errorf("invalid negation window: %d", config.Matcher.NegationWindow)
	}
	if config.Matcher.CacheSize <= 0 {
		return fmt.Errorf("invalid match cache size: %d", config.Matcher.CacheSize)
	}

	if config.Model.Enabled {
		if config.Model.BaseURL == "" {
			return fmt.Errorf("model base URL is required when the model provider is enabled")
		}
		if config.Model.Model == "" {
			return fmt.Errorf("model name is required when the model provider is enabled")
		}
		if config.Model.RateLimit <= 0 {
			return fmt.Errorf("invalid model rate limit: %f", config.Model.RateLimit)
		}
	}

	if config.Audit.Enabled {
		switch config.Audit.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("invalid audit driver: %s", config.Audit.Driver)
		}
		if config.Audit.DSN == "" {
			return fmt.Errorf("audit DSN is required when auditing is enabled")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}
