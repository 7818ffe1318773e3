package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// luaSlidingWindow keeps the accepted hits of one caller in a sorted set
// scored by time. A rejected call is not recorded, so hammering a full
// window does not push the retry time further out.
//
// KEYS[1] caller key
// ARGV    now_ms, window_ms, limit, member
// returns {allowed, count, retry_ms}
const luaSlidingWindow = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])

if count >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local retry = window
  if oldest[2] then
    retry = math.max(0, window - (now - tonumber(oldest[2])))
  end
  return {0, count, retry}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, count + 1, 0}
`

// SlidingWindowLimiter allows at most limit calls per caller within any
// window. It guards reservation creation per caller.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
	script *redis.Script
	now    func() time.Time
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	scope string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaSlidingWindow),
		now:    time.Now,
	}
}

// Allow records one hit for caller if it fits the limit. When it does not,
// retryAfter is the time until the oldest hit leaves the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, caller string) (allowed bool, current int64, retryAfter time.Duration, err error) {
	const op = "redis.SlidingWindowLimiter.Allow"

	if l.limit <= 0 || l.window <= 0 {
		return true, 0, 0, nil
	}

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{KeyRateLimit(l.scope, caller)},
		l.now().UnixMilli(),
		l.window.Milliseconds(),
		l.limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("%s:%w", op, err)
	}

	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("%s:unexpected script result %v", op, res)
	}

	return res[0] == 1, res[1], time.Duration(res[2]) * time.Millisecond, nil
}
