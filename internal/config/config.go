package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the top-level application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	Storage   StorageConfig   `toml:"storage"`
	Provider  ProviderConfig  `toml:"provider"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Email     EmailConfig     `toml:"email"`
	SMS       SMSConfig       `toml:"sms"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// LoggingConfig holds the logger settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// StorageConfig holds the SQLite settings
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// ProviderConfig holds the flight data provider settings
type ProviderConfig struct {
	BaseURL               string  `toml:"base_url"`
	APIKey                string  `toml:"api_key"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	MaxRetries            int     `toml:"max_retries"`
	RequestsPerSecond     float64 `toml:"requests_per_second"`
	RequestBurst          int     `toml:"request_burst"`
}

// SchedulerConfig holds the alert re-check loop settings
type SchedulerConfig struct {
	CheckIntervalMinutes int `toml:"check_interval_minutes"`
}

// EmailConfig holds SMTP delivery settings for the email channel
type EmailConfig struct {
	Enabled  bool   `toml:"enabled"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	Sender   string `toml:"sender"`
	Password string `toml:"password"`
}

// SMSConfig holds Twilio delivery settings for the SMS channel
type SMSConfig struct {
	Enabled    bool   `toml:"enabled"`
	AccountSID string `toml:"account_sid"`
	AuthToken  string `toml:"auth_token"`
	FromNumber string `toml:"from_number"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			DBPath: "farewatch.db",
		},
		Provider: ProviderConfig{
			BaseURL:               "https://serpapi.com",
			RequestTimeoutSeconds: 20,
			MaxRetries:            2,
			RequestsPerSecond:     1,
			RequestBurst:          2,
		},
		Scheduler: SchedulerConfig{
			CheckIntervalMinutes: 60,
		},
		Email: EmailConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
	}
}

// Load reads the configuration file at path, applies defaults for
// anything unset, and then applies environment overrides. A missing
// file is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides pulls secrets and channel flags from the
// environment so credentials never need to live in the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SERPAPI_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv("EMAIL_SENDER"); v != "" {
		c.Email.Sender = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		c.SMS.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		c.SMS.AuthToken = v
	}
	if v := os.Getenv("TWILIO_FROM_NUMBER"); v != "" {
		c.SMS.FromNumber = v
	}
	if v := os.Getenv("FAREWATCH_EMAIL_ALERTS"); v != "" {
		c.Email.Enabled = isTruthy(v)
	}
	if v := os.Getenv("FAREWATCH_SMS_ALERTS"); v != "" {
		c.SMS.Enabled = isTruthy(v)
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
