// Package idemcache caches the results of idempotent balance mutations in Redis.
//
// The cache only short-circuits replays. The database stays the source of truth,
// so every failure here is logged and treated as a miss.
package idemcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Cache stores mutation results by account and idempotency key.
type Cache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// New returns Cache that keeps results for ttl.
func New(rdb redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Key returns the Redis key of the result.
func Key(accountID int64, idempotencyKey string) string {
	return fmt.Sprintf("idem:%d:%s", accountID, idempotencyKey)
}

// Get returns the cached result, ok is false on a miss.
func (c *Cache) Get(ctx context.Context, accountID int64, idempotencyKey string) (domain.BalanceTxResult, bool) {
	l := zerolog.Ctx(ctx)

	data, err := c.rdb.Get(ctx, Key(accountID, idempotencyKey)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.Warn().Err(err).Msg("idempotency cache get")
		}

		return domain.BalanceTxResult{}, false
	}

	var res domain.BalanceTxResult
	if err := json.Unmarshal(data, &res); err != nil {
		l.Warn().Err(err).Msg("idempotency cache decode")
		return domain.BalanceTxResult{}, false
	}

	return res, true
}

// Set stores the result.
func (c *Cache) Set(ctx context.Context, accountID int64, idempotencyKey string, res domain.BalanceTxResult) {
	l := zerolog.Ctx(ctx)

	data, err := json.Marshal(res)
	if err != nil {
		l.Warn().Err(err).Msg("idempotency cache encode")
		return
	}

	if err := c.rdb.Set(ctx, Key(accountID, idempotencyKey), data, c.ttl).Err(); err != nil {
		l.Warn().Err(err).Msg("idempotency cache set")
	}
}
