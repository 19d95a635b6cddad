// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"github.com/spf13/viper"

	"crypto_backend/internal/platform/externalapi/coingecko"
	infrahttp "crypto_backend/internal/platform/http"
	"crypto_backend/internal/shared/ratelimiter"
)

// NewMarket creates a fully configured CoinGecko client with HTTP client and rate limiter.
func NewMarket(v *viper.Viper) *coingecko.Client {
	cfg := coingecko.LoadConfig(v)
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout)
	limiter := ratelimiter.NewRateLimiter(cfg.RateLimit, time.Minute)
	return coingecko.NewClient(cfg, httpClient, limiter)
}
