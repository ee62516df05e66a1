package domain

import "time"

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Matcher MatcherConfig `mapstructure:"matcher"`
	Model   ModelConfig   `mapstructure:"model"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// RulesConfig points at the rule sources. Empty paths select the embedded
// default rule files.
type RulesConfig struct {
	PrimaryPath  string `mapstructure:"primary_path"`
	FallbackPath string `mapstructure:"fallback_path"`
}

// MatcherConfig tunes negation handling and the match cache. Per-rule
// settings in the rule files override the global values here.
type MatcherConfig struct {
	NegationWindow int      `mapstructure:"negation_window"`
	NegationCues   []string `mapstructure:"negation_cues"`
	Breakers       []string `mapstructure:"breakers"`
	CacheSize      int      `mapstructure:"cache_size"`
}

// ModelConfig configures the external model-flag provider. The engine runs
// without it; Enabled=false just means every result is degraded.
type ModelConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

// AuditConfig configures the match audit store.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

// LoggingConfig holds the logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
