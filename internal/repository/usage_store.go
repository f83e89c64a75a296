package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/omnicore/omniaudit/internal/infrastructure/redis"
)

// incrementScript adds one to the counter unless it already reached the limit.
// A negative limit disables the check. Returns {allowed, count}.
var incrementScript = goredis.NewScript(`
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if limit >= 0 and current >= limit then
	return {0, current}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('EXPIRE', KEYS[1], ttl)
end
return {1, current}
`)

// releaseScript decrements a positive counter and leaves zero or absent keys alone.
var releaseScript = goredis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current <= 0 then
	return 0
end
return redis.call('DECR', KEYS[1])
`)

// RedisUsageStore implements domain.UsageStore with monthly keys
type RedisUsageStore struct {
	redis *redis.Client
}

// NewRedisUsageStore creates a new usage store
func NewRedisUsageStore(client *redis.Client) *RedisUsageStore {
	return &RedisUsageStore{redis: client}
}

// UsageKey returns the counter key for the month containing at
func UsageKey(userID, feature string, at time.Time) string {
	return fmt.Sprintf("usage:%s:%s:%s", userID, feature, at.UTC().Format("2006-01"))
}

// Increment atomically consumes one unit if the limit allows it
func (s *RedisUsageStore) Increment(ctx context.Context, userID, feature string, limit int, at time.Time) (bool, int, error) {
	key := UsageKey(userID, feature, at)
	res, err := s.redis.RunScript(ctx, incrementScript, []string{key}, limit, int64(keyTTL(at).Seconds()))
	if err != nil {
		return false, 0, fmt.Errorf("usage increment: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, fmt.Errorf("usage increment: unexpected reply %v", res)
	}
	allowed, _ := vals[0].(int64)
	count, _ := vals[1].(int64)
	return allowed == 1, int(count), nil
}

// Get returns the current counter value, zero when absent
func (s *RedisUsageStore) Get(ctx context.Context, userID, feature string, at time.Time) (int, error) {
	raw, err := s.redis.Get(ctx, UsageKey(userID, feature, at))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("usage get: %w", err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("usage get: %w", err)
	}
	return n, nil
}

// Release returns one unit taken by Increment in the same period
func (s *RedisUsageStore) Release(ctx context.Context, userID, feature string, at time.Time) error {
	if _, err := s.redis.RunScript(ctx, releaseScript, []string{UsageKey(userID, feature, at)}); err != nil {
		return fmt.Errorf("usage release: %w", err)
	}
	return nil
}

// keyTTL keeps a counter until one day after its month ends
func keyTTL(at time.Time) time.Duration {
	u := at.UTC()
	nextMonth := time.Date(u.Year(), u.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return nextMonth.Sub(u) + 24*time.Hour
}
