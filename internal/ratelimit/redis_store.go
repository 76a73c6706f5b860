package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and debits a bucket in one round trip. State is a
// hash of fractional tokens plus the last refill timestamp in milliseconds.
// It replies {allowed, tokens left, ms until the next token}.
var tokenBucketScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local refill_per_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now_ms
end

if now_ms > ts then
  tokens = math.min(capacity, tokens + (now_ms - ts) * refill_per_ms)
  ts = now_ms
end

local allowed = 0
local wait_ms = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  wait_ms = math.ceil((1 - tokens) / refill_per_ms)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('PEXPIRE', KEYS[1], ARGV[4])

return {allowed, math.floor(tokens), wait_ms}
`)

// RedisStore keeps the counters in Redis so every API instance debits the
// same budget.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		now:    time.Now,
	}
}

func (s *RedisStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("s.client pipeline exec -> %w", err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		ttl = window
	}

	return incr.Val(), ttl, nil
}

func (s *RedisStore) DebitBucket(ctx context.Context, key string, capacity, refillPerMinute int) (bool, int64, time.Duration, error) {
	refillPerMs := float64(refillPerMinute) / float64(time.Minute/time.Millisecond)
	idle := bucketIdleTTL(capacity, refillPerMinute)

	res, err := tokenBucketScript.Run(ctx, s.client, []string{key},
		capacity, refillPerMs, s.now().UnixMilli(), idle.Milliseconds()).Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("tokenBucketScript.Run -> %w", err)
	}
	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("tokenBucketScript.Run -> unexpected reply of %d values", len(res))
	}

	allowed, _ := res[0].(int64)
	remaining, _ := res[1].(int64)
	waitMs, _ := res[2].(int64)

	return allowed == 1, remaining, time.Duration(waitMs) * time.Millisecond, nil
}

// bucketIdleTTL is how long an untouched bucket survives. Twice the time a
// drained bucket needs to refill, so forgetting state never grants tokens a
// live bucket would not have had.
func bucketIdleTTL(capacity, refillPerMinute int) time.Duration {
	refillToFull := time.Duration(capacity) * time.Minute / time.Duration(refillPerMinute)
	idle := 2 * refillToFull
	if idle < time.Minute {
		idle = time.Minute
	}
	return idle
}
