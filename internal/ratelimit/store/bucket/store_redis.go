package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"authgate/internal/ratelimit/models"
)

// RedisBucketStore counts requests per key in fixed windows shared by every
// replica. The first request of a window sets the key's expiry.
type RedisBucketStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisOption configures a RedisBucketStore.
type RedisOption func(*RedisBucketStore)

// WithKeyPrefix namespaces the counter keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisBucketStore) {
		s.keyPrefix = prefix
	}
}

// NewRedis creates a store backed by client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *RedisBucketStore {
	s := &RedisBucketStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisBucketStore) key(key string) string {
	return s.keyPrefix + "ratelimit:" + key
}

// allowScript increments the counter and gives it the window as expiry when
// it has none, in one step, so a counter can never be left without a TTL.
// Returns {count, pttl}.
var allowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// Allow increments the counter for key and reports whether it is within limit.
func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	vals, err := allowScript.Run(ctx, s.client, []string{s.key(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("increment rate limit counter: %w", err)
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("increment rate limit counter: unexpected reply %v", vals)
	}

	count := int(vals[0])
	result := &models.Result{
		Allowed: count <= limit,
		Limit:   limit,
		ResetAt: time.Now().Add(time.Duration(vals[1]) * time.Millisecond),
	}
	if result.Allowed {
		result.Remaining = limit - count
	}
	return result, nil
}

// Reset deletes the counter for key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("reset rate limit counter: %w", err)
	}
	return nil
}
