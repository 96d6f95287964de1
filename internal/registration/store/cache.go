package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"checkpoint/internal/registration/models"
)

const (
	cacheKeyPrefix     = "checkpoint:registration:"
	tombstoneKeyPrefix = "checkpoint:registration-deleted:"
)

// fillScript writes the cache entry unless the id carries a delete tombstone.
// KEYS[1] entry, KEYS[2] tombstone, ARGV[1] document, ARGV[2] ttl in ms.
var fillScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// CachedBackend serves Get from Redis and falls back to the wrapped Backend.
// Registrations are never updated, so only Delete needs to invalidate. A
// deleted id is tombstoned for one TTL; while the tombstone lives the cache
// neither serves nor stores that id, so a read racing the delete cannot bring
// the record back. Redis failures degrade to the wrapped Backend.
type CachedBackend struct {
	Backend
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps backend with a Redis read-through cache for single records.
func NewCached(backend Backend, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedBackend{
		Backend: backend,
		client:  client,
		ttl:     ttl,
		logger:  logger,
	}
}

func (c *CachedBackend) Get(ctx context.Context, id string) (*models.Registration, error) {
	key, tombstone := cacheKeyPrefix+id, tombstoneKeyPrefix+id

	vals, err := c.client.MGet(ctx, key, tombstone).Result()
	switch {
	case err != nil:
		c.logger.WarnContext(ctx, "registration cache read failed", "registration_id", id, "error", err)
	case vals[1] != nil:
		// Deleted recently; the backend is the only authority.
		return c.Backend.Get(ctx, id)
	case vals[0] != nil:
		if raw, ok := vals[0].(string); ok {
			var r models.Registration
			if jsonErr := json.Unmarshal([]byte(raw), &r); jsonErr == nil {
				return &r, nil
			}
		}
		c.logger.WarnContext(ctx, "discarding undecodable cache entry", "registration_id", id)
	}

	r, err := c.Backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc, jsonErr := json.Marshal(r); jsonErr == nil {
		err := fillScript.Run(ctx, c.client, []string{key, tombstone}, doc, c.ttl.Milliseconds()).Err()
		if err != nil {
			c.logger.WarnContext(ctx, "registration cache write failed", "registration_id", id, "error", err)
		}
	}
	return r, nil
}

// Delete tombstones the id before removing the row, so a Get that read the
// row just before the delete cannot repopulate the cache afterwards.
func (c *CachedBackend) Delete(ctx context.Context, id string) error {
	tombstone := tombstoneKeyPrefix + id
	if err := c.client.Set(ctx, tombstone, 1, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "registration cache tombstone failed", "registration_id", id, "error", err)
	}

	if err := c.Backend.Delete(ctx, id); err != nil {
		return err
	}
	if err := c.client.Del(ctx, cacheKeyPrefix+id).Err(); err != nil {
		c.logger.WarnContext(ctx, "registration cache invalidation failed", "registration_id", id, "error", err)
	}
	return nil
}
