package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	Quotes  QuotesConfig
	Refresh RefreshConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// QuotesConfig contains endpoints and client options for the external quote
// providers. Base URLs are configurable so tests can point the clients at
// local HTTP fixtures.
type QuotesConfig struct {
	BaseURL        string
	CSVBaseURL     string
	UserAgent      string
	TimeoutSeconds int
}

// RefreshConfig holds the optional auto-refresh schedule. An empty cron
// expression disables scheduled refreshes entirely.
type RefreshConfig struct {
	CronSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	timeoutSeconds, err := strconv.Atoi(getenvWithDefault("HTTP_TIMEOUT_SECONDS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Quotes: QuotesConfig{
			BaseURL:        getenvWithDefault("QUOTE_BASE_URL", "https://query1.finance.yahoo.com"),
			CSVBaseURL:     getenvWithDefault("CSV_QUOTE_BASE_URL", "https://stooq.com"),
			UserAgent:      getenvWithDefault("HTTP_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"),
			TimeoutSeconds: timeoutSeconds,
		},
		Refresh: RefreshConfig{
			CronSchedule: os.Getenv("REFRESH_CRON_SCHEDULE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.Quotes.BaseURL == "":
		return errors.New("QUOTE_BASE_URL must not be empty")
	case c.Quotes.CSVBaseURL == "":
		return errors.New("CSV_QUOTE_BASE_URL must not be empty")
	case c.Quotes.UserAgent == "":
		return errors.New("HTTP_USER_AGENT must not be empty")
	}

	if c.Quotes.TimeoutSeconds <= 0 {
		return errors.New("HTTP_TIMEOUT_SECONDS must be positive")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
