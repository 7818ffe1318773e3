package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache holds read models as JSON. It is never the source of truth: a miss,
// an unreachable redis or an undecodable entry all fall through to the
// loader.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	const op = "redis.Cache.Del"

	if len(keys) == 0 {
		return nil
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T

	b, ok, err := c.get(ctx, key)
	if err != nil || !ok {
		return v, false
	}

	if err := json.Unmarshal(b, &v); err != nil {
		_ = c.Del(ctx, key)
		return v, false
	}

	return v, true
}

// GetOrSetJSON returns the cached value under key or loads, stores and
// returns it. Concurrent misses on one key share a single load.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok := lookup[T](ctx, c, key); ok {
		return v, nil
	}

	res, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok := lookup[T](ctx, c, key); ok {
			return v, nil
		}

		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		if b, err := json.Marshal(v); err == nil {
			_ = c.rdb.Set(ctx, key, b, ttl).Err()
		}

		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return res.(T), nil
}

// InvalidateCategory drops the cached category card, its room list and the
// rollups that count its rooms.
func (c *Cache) InvalidateCategory(ctx context.Context, id uuid.UUID) error {
	return c.Del(
		ctx,
		KeyCategory(id),
		KeyCategoryRooms(id),
		KeyCategoryStats(),
		KeyRoomStats(),
		KeyBookingStats(),
	)
}

func (c *Cache) InvalidateSeats(ctx context.Context) error {
	return c.Del(ctx, KeySeatPools())
}

// InvalidateChange drops what an InventoryChange from another instance makes
// stale.
func (c *Cache) InvalidateChange(ctx context.Context, ch InventoryChange) error {
	switch ch.Kind {
	case KindSeatPool:
		return c.InvalidateSeats(ctx)
	case KindCategory:
		id, err := uuid.Parse(ch.Key)
		if err != nil {
			return err
		}
		return c.InvalidateCategory(ctx, id)
	}
	return nil
}
