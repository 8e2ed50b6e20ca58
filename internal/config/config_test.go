package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend.local/api/disbursal-data/")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Port != "8080" || cfg.RefreshInterval != 10 || cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.CurrencySymbol != "₹" || cfg.NumberLocale != "en-IN" || cfg.PublicURL != "/" || cfg.SkipOverlap {
		t.Fatalf("display defaults = %+v", cfg)
	}
}

func TestNewConfigOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://insights.example.com/data")
	t.Setenv("PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("REFRESH_INTERVAL", "0")
	t.Setenv("SKIP_OVERLAP", "true")
	t.Setenv("NUMBER_LOCALE", "en-US")
	t.Setenv("CURRENCY_SYMBOL", "$")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Port != "9090" || cfg.RequestTimeout != 5*time.Second || cfg.RefreshInterval != 0 || !cfg.SkipOverlap {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.NumberLocale != "en-US" || cfg.CurrencySymbol != "$" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestNewConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"empty backend", "BACKEND_URL", ""},
		{"relative backend", "BACKEND_URL", "api/data"},
		{"bad timeout", "REQUEST_TIMEOUT", "soon"},
		{"zero timeout", "REQUEST_TIMEOUT", "0s"},
		{"bad interval", "REFRESH_INTERVAL", "ten"},
		{"negative interval", "REFRESH_INTERVAL", "-1"},
		{"bad skip flag", "SKIP_OVERLAP", "maybe"},
		{"bad locale", "NUMBER_LOCALE", "fr-FR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BACKEND_URL", "http://backend.local/data")
			t.Setenv(tt.key, tt.val)
			if _, err := NewConfig(); err == nil {
				t.Fatalf("%s=%q accepted", tt.key, tt.val)
			}
		})
	}
}
