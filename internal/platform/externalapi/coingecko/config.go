// Package coingecko provides a client for the CoinGecko v3 market data API.
package coingecko

import (
	"time"

	"github.com/spf13/viper"
)

const (
	defaultBaseURL      = "https://api.coingecko.com/api/v3"
	defaultAPIKeyHeader = "x-cg-demo-api-key"
	defaultTimeout      = 10 * time.Second
	defaultRateLimit    = 30
)

// Config holds configuration for the CoinGecko API client.
type Config struct {
	BaseURL      string        // Base URL for the API (e.g., "https://api.coingecko.com/api/v3")
	APIKey       string        // Optional API key; sent only when set
	APIKeyHeader string        // Header carrying the API key ("x-cg-demo-api-key" or "x-cg-pro-api-key")
	Timeout      time.Duration // HTTP request timeout
	RateLimit    int           // Calls per minute; 0 disables the limiter
}

// LoadConfig loads CoinGecko configuration from v, filling in defaults for unset keys.
func LoadConfig(v *viper.Viper) Config {
	cfg := Config{
		BaseURL:      v.GetString("COINGECKO_BASE_URL"),
		APIKey:       v.GetString("COINGECKO_API_KEY"),
		APIKeyHeader: v.GetString("COINGECKO_API_KEY_HEADER"),
		Timeout:      v.GetDuration("COINGECKO_TIMEOUT"),
		RateLimit:    defaultRateLimit,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = defaultAPIKeyHeader
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if v.IsSet("COINGECKO_RATE_LIMIT") {
		cfg.RateLimit = v.GetInt("COINGECKO_RATE_LIMIT")
	}
	return cfg
}
