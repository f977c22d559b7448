package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/logger"
	"github.com/finledger/ledger/internal/ports"
)

// DefaultCategoryTTL bounds how long a cached category may be served
const DefaultCategoryTTL = 5 * time.Minute

// NewRedisClient parses url and verifies the server answers within timeout
func NewRedisClient(ctx context.Context, url string, timeout time.Duration) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if timeout > 0 {
		opt.DialTimeout = timeout
		opt.ReadTimeout = timeout
		opt.WriteTimeout = timeout
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// CategoryCache is a read-through cache in front of a category oracle. Only successful lookups
// are cached, and any redis failure falls through to the wrapped oracle.
type CategoryCache struct {
	next   ports.CategoryOracle
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewCategoryCache wraps next with a redis backed cache
func NewCategoryCache(next ports.CategoryOracle, client *redis.Client, ttl time.Duration, log logger.Logger) *CategoryCache {
	if ttl <= 0 {
		ttl = DefaultCategoryTTL
	}
	return &CategoryCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "category_cache"}),
	}
}

// Resolve returns the cached category or asks the wrapped oracle
func (c *CategoryCache) Resolve(ctx context.Context, categoryID, userID int64) (*domain.Category, error) {
	key := categoryKey(categoryID, userID)

	val, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cat domain.Category
		if err := json.Unmarshal(val, &cat); err == nil {
			return &cat, nil
		}
		c.logger.Warn(ctx, "Discarding undecodable cached category", map[string]interface{}{"key": key})
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn(ctx, "Category cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	cat, err := c.next.Resolve(ctx, categoryID, userID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(cat)
	if err != nil {
		return cat, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "Category cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	return cat, nil
}

var _ ports.CategoryInvalidator = (*CategoryCache)(nil)

// Invalidate drops the cached entry for a category
func (c *CategoryCache) Invalidate(ctx context.Context, categoryID, userID int64) error {
	return c.client.Del(ctx, categoryKey(categoryID, userID)).Err()
}

func categoryKey(categoryID, userID int64) string {
	return fmt.Sprintf("ledger:category:%d:%d", userID, categoryID)
}
