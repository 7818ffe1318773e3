package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemNS     = ns + ":idem"
	idemLocked = "LOCK"
)

// KeyIdemReservation scopes an Idempotency-Key to the caller that sent it.
func KeyIdemReservation(principal, idemKey string) string {
	return fmt.Sprintf("%s:reservations:%s:%s", idemNS, principal, idemKey)
}

// IdempotentResponse is the stored outcome of the first request that used a
// key, replayed to every retry.
type IdempotentResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyStore keeps one slot per key. A slot is either a short-lived
// lock held by the request in flight or the response it produced.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// AcquireLock claims an empty slot. It reports false when the slot is locked
// or already holds a response.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	const op = "redis.IdempotencyStore.AcquireLock"

	ok, err := s.rdb.SetNX(ctx, key, idemLocked, lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	return ok, nil
}

// SaveResult replaces the lock with the response, kept for the store TTL.
func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, status int, body []byte) error {
	const op = "redis.IdempotencyStore.SaveResult"

	b, err := json.Marshal(IdempotentResponse{Status: status, Body: body})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// GetResult returns the stored response. A missing slot and a held lock both
// report false.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (*IdempotentResponse, bool, error) {
	const op = "redis.IdempotencyStore.GetResult"

	v, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s:%w", op, err)
	}

	if string(v) == idemLocked {
		return nil, false, nil
	}

	var res IdempotentResponse
	if err := json.Unmarshal(v, &res); err != nil {
		return nil, false, fmt.Errorf("%s:%w", op, err)
	}

	return &res, true, nil
}

// Release frees the slot so the client can retry a request that failed.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	const op = "redis.IdempotencyStore.Release"

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
