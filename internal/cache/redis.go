package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultRedisPrefix = "coursegen:cache:"

// RedisStore keeps each entry in a hash (value, created_at, expires_at,
// hit_count) with a native PEXPIRE. The expires_at field is still checked on
// read so expiry is decided by the same clock as the other backends. Redis
// reclaims expired keys itself, so RedisStore is not a Purger.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
		logger: logger.Named("cache"),
		now:    time.Now,
	}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

// getScript reads an entry and records the hit in one step, so a concurrent
// Invalidate can never leave a bare hit_count hash behind. An entry whose
// expires_at is not after ARGV[1] is deleted and reported as a miss.
var getScript = redis.NewScript(`
local fields = redis.call('HMGET', KEYS[1], 'value', 'expires_at')
if not fields[1] then
  return false
end
local expires = tonumber(fields[2])
if expires and tonumber(ARGV[1]) >= expires then
  redis.call('DEL', KEYS[1])
  return false
end
redis.call('HINCRBY', KEYS[1], 'hit_count', 1)
return fields[1]
`)

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := getScript.Run(ctx, s.client, []string{s.redisKey(key)}, s.now().UnixMilli()).Text()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return []byte(value), true
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	rk := s.redisKey(key)
	now := s.now()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rk)
		pipe.HSet(ctx, rk,
			"value", value,
			"created_at", now.UnixMilli(),
			"expires_at", now.Add(ttl).UnixMilli(),
			"hit_count", 0,
		)
		pipe.PExpire(ctx, rk, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

// HitCount reports the recorded hits for key, or -1 if absent.
func (s *RedisStore) HitCount(ctx context.Context, key string) int {
	v, err := s.client.HGet(ctx, s.redisKey(key), "hit_count").Int()
	if err != nil {
		return -1
	}
	return v
}
