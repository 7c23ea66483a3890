// Package marketcache puts a Redis read-through cache in front of a market data finder.
package marketcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

const keyPrefix = "pricing:market:"

// absent is cached when the wrapped finder has no data point.
const absent = "null"

// Cache implements pricing.MarketDataFinder. Redis errors are logged and fall through to the
// wrapped finder; they never fail a lookup.
type Cache struct {
	client redis.Cmdable
	next   pricing.MarketDataFinder
	ttl    time.Duration
	logger *zap.Logger
}

// New wraps next with a cache stored in client for ttl.
func New(client redis.Cmdable, next pricing.MarketDataFinder, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, next: next, ttl: ttl, logger: logger.Named("marketcache")}
}

// NewClient connects to the Redis server at addr.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	return client, nil
}

// Key returns the cache key of a category/product lookup.
func Key(category, product string) string {
	return keyPrefix + category + ":" + product
}

// FindLatestMarketData implements pricing.MarketDataFinder.
func (c *Cache) FindLatestMarketData(ctx context.Context, category, product string) (*pricing.MarketDataPoint, error) {
	key := Key(category, product)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		point, decodeErr := decode(cached)
		if decodeErr == nil {
			return point, nil
		}
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(decodeErr))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("market cache read failed", zap.String("key", key), zap.Error(err))
	}

	point, err := c.next.FindLatestMarketData(ctx, category, product)
	if err != nil {
		return nil, err
	}

	value, err := encode(point)
	if err != nil {
		c.logger.Warn("market data point not cacheable", zap.String("key", key), zap.Error(err))
		return point, nil
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("market cache write failed", zap.String("key", key), zap.Error(err))
	}
	return point, nil
}

// Invalidate drops every cached lookup of category.
func (c *Cache) Invalidate(ctx context.Context, category string) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+globEscaper.Replace(category)+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan market cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete market cache keys: %w", err)
	}
	return nil
}

// globEscaper quotes the SCAN MATCH metacharacters so a category matches only itself.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func encode(point *pricing.MarketDataPoint) (string, error) {
	if point == nil {
		return absent, nil
	}
	data, err := json.Marshal(point)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decode(raw string) (*pricing.MarketDataPoint, error) {
	if raw == absent {
		return nil, nil
	}
	var point pricing.MarketDataPoint
	if err := json.Unmarshal([]byte(raw), &point); err != nil {
		return nil, err
	}
	return &point, nil
}
