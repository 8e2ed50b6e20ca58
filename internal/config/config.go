package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port            string
	LogLevel        string
	BackendURL      string
	APIKey          string
	DBConn          string
	PublicURL       string
	AliasFile       string
	CurrencySymbol  string
	NumberLocale    string
	RequestTimeout  time.Duration
	RefreshInterval int
	SkipOverlap     bool
}

// NewConfig loads configuration from environment variables, reading a .env
// file first when one exists.
func NewConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	interval, err := strconv.Atoi(getEnv("REFRESH_INTERVAL", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	skipOverlap, err := strconv.ParseBool(getEnv("SKIP_OVERLAP", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SKIP_OVERLAP: %w", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		BackendURL:      getEnv("BACKEND_URL", "http://localhost:8000/api/disbursal-data/"),
		APIKey:          getEnv("BLINKR_API_KEY", ""),
		DBConn:          getEnv("DB_CONN", ""),
		PublicURL:       getEnv("PUBLIC_URL", "/"),
		AliasFile:       getEnv("ALIAS_FILE", ""),
		CurrencySymbol:  getEnv("CURRENCY_SYMBOL", "₹"),
		NumberLocale:    getEnv("NUMBER_LOCALE", "en-IN"),
		RequestTimeout:  timeout,
		RefreshInterval: interval,
		SkipOverlap:     skipOverlap,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if _, err := url.ParseRequestURI(c.BackendURL); err != nil {
		return fmt.Errorf("invalid BACKEND_URL: %w", err)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("REFRESH_INTERVAL must not be negative")
	}
	switch c.NumberLocale {
	case "en-IN", "en-US":
	default:
		return fmt.Errorf("unsupported NUMBER_LOCALE %q", c.NumberLocale)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
