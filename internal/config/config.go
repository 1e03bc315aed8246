// Package config loads NewsBot settings from an optional YAML file, .env
// files and environment variables. Environment always wins.
package config

import (
	"fmt"
	"os"
	"time"
)

const (
	defaultPort           = 5000
	defaultMaxItems       = 5
	defaultTimeout        = 5 * time.Second
	defaultSummaryMaxLen  = 200
	defaultRatePerSecond  = 1.0
	defaultRateBurst      = 5
	defaultWhatsAppStore  = "whatsapp.db"
	defaultAdminUsername  = "admin"
	defaultTokenTTL       = 24 * time.Hour
	maxItemsUpperBound    = 10
	minSummaryLengthBound = 20
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	News     NewsConfig     `yaml:"news"`
	Telegram TelegramConfig `yaml:"telegram"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Limits   LimitsConfig   `yaml:"limits"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

type NewsConfig struct {
	APIKey           string        `yaml:"api_key" env:"GNEWS_API_KEY"`
	BaseURL          string        `yaml:"base_url" env:"GNEWS_BASE_URL"`
	MaxItems         int           `yaml:"max_items" env:"NEWS_MAX_ITEMS"`
	Timeout          time.Duration `yaml:"timeout" env:"NEWS_TIMEOUT"`
	SummaryMaxLength int           `yaml:"summary_max_length" env:"SUMMARY_MAX_LENGTH"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
}

type WhatsAppConfig struct {
	Enabled   bool   `yaml:"enabled" env:"WHATSAPP_ENABLED"`
	StorePath string `yaml:"store_path" env:"WHATSAPP_STORE_PATH"`
}

type TwilioConfig struct {
	AuthToken  string `yaml:"auth_token" env:"TWILIO_AUTH_TOKEN"`
	WebhookURL string `yaml:"webhook_url" env:"TWILIO_WEBHOOK_URL"`
}

type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	AdminUsername     string        `yaml:"admin_username" env:"ADMIN_USERNAME"`
	AdminPasswordHash string        `yaml:"admin_password_hash" env:"ADMIN_PASSWORD_HASH"`
	TokenTTL          time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
}

type LimitsConfig struct {
	PerSecond float64 `yaml:"per_second" env:"RATE_LIMIT_PER_SECOND"`
	Burst     int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
}

// Load reads path (optional), applies environment overrides, fills defaults
// and validates the result.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := &Config{}
	if err := readYAML(path, cfg); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.News.MaxItems == 0 {
		cfg.News.MaxItems = defaultMaxItems
	}
	if cfg.News.Timeout == 0 {
		cfg.News.Timeout = defaultTimeout
	}
	if cfg.News.SummaryMaxLength == 0 {
		cfg.News.SummaryMaxLength = defaultSummaryMaxLen
	}
	if cfg.WhatsApp.StorePath == "" {
		cfg.WhatsApp.StorePath = defaultWhatsAppStore
	}
	if cfg.Auth.AdminUsername == "" {
		cfg.Auth.AdminUsername = defaultAdminUsername
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = defaultTokenTTL
	}
	if cfg.Limits.PerSecond == 0 {
		cfg.Limits.PerSecond = defaultRatePerSecond
	}
	if cfg.Limits.Burst == 0 {
		cfg.Limits.Burst = defaultRateBurst
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// ValidationError names the offending setting
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if c.News.MaxItems < 1 || c.News.MaxItems > maxItemsUpperBound {
		return &ValidationError{Field: "news.max_items", Message: fmt.Sprintf("must be between 1 and %d", maxItemsUpperBound)}
	}
	if c.News.Timeout <= 0 {
		return &ValidationError{Field: "news.timeout", Message: "must be positive"}
	}
	if c.News.SummaryMaxLength < minSummaryLengthBound {
		return &ValidationError{Field: "news.summary_max_length", Message: fmt.Sprintf("must be at least %d", minSummaryLengthBound)}
	}
	if c.Limits.PerSecond < 0 || c.Limits.Burst < 0 {
		return &ValidationError{Field: "limits", Message: "must not be negative"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error"}
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// AdminEnabled reports whether the admin API can issue tokens
func (c *Config) AdminEnabled() bool {
	return c.Auth.JWTSecret != "" && c.Auth.AdminPasswordHash != ""
}

// GetConfigPath returns CONFIG_PATH or the default
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}
