// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"crypto_backend/internal/feature/registry/domain/entity"
	"crypto_backend/internal/feature/registry/usecase"
)

const (
	defaultTTL       = 5 * time.Minute
	defaultNamespace = "coins"
	scanCount        = 200
)

// CachingCoinRepository decorates a CoinRepository with Redis caching.
// Single-coin lookups and list pages are read through the cache. Entry keys carry
// the namespace generation ("<ns>:gen"); every successful write bumps it, so a fill
// that read the database before the write lands under a dead generation and is never served.
type CachingCoinRepository struct {
	inner     usecase.CoinRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.CoinRepository = (*CachingCoinRepository)(nil)

// NewCachingCoinRepository decorates a CoinRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "coins".
// A nil rdb disables caching entirely.
func NewCachingCoinRepository(rdb *redis.Client, ttl time.Duration, inner usecase.CoinRepository, namespace string) *CachingCoinRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &CachingCoinRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Create stores the coin and invalidates the namespace.
func (c *CachingCoinRepository) Create(ctx context.Context, coin *entity.TrackedCoin) error {
	if err := c.inner.Create(ctx, coin); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// FindBySymbol retrieves a coin, checking cache first then falling back to the database.
// Misses (ErrNotFound) are not cached.
func (c *CachingCoinRepository) FindBySymbol(ctx context.Context, symbol string) (*entity.TrackedCoin, error) {
	if c.rdb == nil {
		return c.inner.FindBySymbol(ctx, symbol)
	}

	gen, ok := c.generation(ctx)
	if !ok {
		return c.inner.FindBySymbol(ctx, symbol)
	}
	key := c.symbolKey(gen, symbol)

	// 1) Check cache
	var cached entity.TrackedCoin
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	// 2) Fallback to database
	coin, err := c.inner.FindBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	c.store(ctx, key, coin)
	return coin, nil
}

// FindByExternalID is not cached; it is used for uniqueness checks which must see the database.
func (c *CachingCoinRepository) FindByExternalID(ctx context.Context, externalID string) (*entity.TrackedCoin, error) {
	return c.inner.FindByExternalID(ctx, externalID)
}

// List retrieves a page of coins through the cache.
func (c *CachingCoinRepository) List(ctx context.Context, offset, limit int) ([]entity.TrackedCoin, error) {
	if c.rdb == nil {
		return c.inner.List(ctx, offset, limit)
	}

	gen, ok := c.generation(ctx)
	if !ok {
		return c.inner.List(ctx, offset, limit)
	}
	key := c.listKey(gen, offset, limit)

	var cached []entity.TrackedCoin
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	out, err := c.inner.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, out)
	return out, nil
}

// Count is passed through.
func (c *CachingCoinRepository) Count(ctx context.Context) (int64, error) {
	return c.inner.Count(ctx)
}

// UpdateNote updates the note and invalidates the namespace.
func (c *CachingCoinRepository) UpdateNote(ctx context.Context, symbol string, note *string, at time.Time) (*entity.TrackedCoin, error) {
	coin, err := c.inner.UpdateNote(ctx, symbol, note, at)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx)
	return coin, nil
}

// Delete removes the coin and invalidates the namespace.
func (c *CachingCoinRepository) Delete(ctx context.Context, symbol string) (*entity.TrackedCoin, error) {
	coin, err := c.inner.Delete(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx)
	return coin, nil
}

// ListExternalIDs is passed through.
func (c *CachingCoinRepository) ListExternalIDs(ctx context.Context) ([]string, error) {
	return c.inner.ListExternalIDs(ctx)
}

// MergeMetadata applies the patches and invalidates the namespace when any row changed.
func (c *CachingCoinRepository) MergeMetadata(ctx context.Context, patches map[string]entity.Metadata, at time.Time) (int, error) {
	n, err := c.inner.MergeMetadata(ctx, patches, at)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.invalidate(ctx)
	}
	return n, nil
}

// load reads key into dst. It returns false on a miss, a Redis error or a corrupted entry.
func (c *CachingCoinRepository) load(ctx context.Context, key string, dst any) bool {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	if len(b) == 0 {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *CachingCoinRepository) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// generation returns the current namespace generation. A missing counter is generation 0.
// ok is false when Redis cannot be read; the caller then bypasses the cache.
func (c *CachingCoinRepository) generation(ctx context.Context) (gen int64, ok bool) {
	gen, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, true
		}
		slog.Warn("cache generation read failed", "namespace", c.namespace, "error", err)
		return 0, false
	}
	return gen, true
}

// invalidate bumps the generation and then drops the entries of older generations.
// Failures are logged, not returned: the write itself has already been committed.
func (c *CachingCoinRepository) invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Incr(ctx, c.genKey()).Err(); err != nil {
		slog.Warn("cache generation bump failed", "namespace", c.namespace, "error", err)
	}
	if err := c.deleteByPattern(ctx, c.namespace+":v*"); err != nil {
		slog.Warn("cache invalidation failed", "namespace", c.namespace, "error", err)
	}
}

func (c *CachingCoinRepository) genKey() string {
	return c.namespace + ":gen"
}

// symbolKey generates a cache key for a single coin.
func (c *CachingCoinRepository) symbolKey(gen int64, symbol string) string {
	return fmt.Sprintf("%s:v%d:symbol:%s", c.namespace, gen, safe(symbol))
}

// listKey generates a cache key for a list page.
func (c *CachingCoinRepository) listKey(gen int64, offset, limit int) string {
	return fmt.Sprintf("%s:v%d:list:%d:%d", c.namespace, gen, offset, limit)
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingCoinRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "*", "_")
	return s
}
