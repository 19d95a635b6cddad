package di

import (
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"crypto_backend/internal/feature/registry/adapters"
	"crypto_backend/internal/feature/registry/usecase"
	"crypto_backend/internal/platform/cache"
	infraredis "crypto_backend/internal/platform/redis"
)

// NewCoinRepository creates the CoinRepository implementation.
// If rdb is not nil, the GORM repository is wrapped with the Redis cache.
func NewCoinRepository(v *viper.Viper, db *gorm.DB, rdb *redis.Client) usecase.CoinRepository {
	repo := adapters.NewCoinRepository(db)
	if rdb == nil {
		return repo
	}
	cfg := infraredis.LoadConfig(v)
	return cache.NewCachingCoinRepository(rdb, cfg.TTL, repo, "coins")
}

// NewRegistryUsecase wires the repository and the CoinGecko client into a RegistryUsecase.
func NewRegistryUsecase(v *viper.Viper, db *gorm.DB, rdb *redis.Client) *usecase.RegistryUsecase {
	return usecase.NewRegistryUsecase(NewCoinRepository(v, db, rdb), NewMarket(v), v.GetString("REFRESH_CURRENCY"))
}
