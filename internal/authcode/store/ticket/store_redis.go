package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"authgate/internal/authcode/models"
	"authgate/pkg/platform/sentinel"
)

const ticketKeySegment = "ticket:"

// RedisTicketStore shares ticket bindings between instances. Redis TTLs
// evict abandoned tickets; GETDEL makes consumption atomic.
type RedisTicketStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisOption configures a RedisTicketStore.
type RedisOption func(*RedisTicketStore)

// WithKeyPrefix namespaces keys, e.g. "authgate:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisTicketStore) {
		s.keyPrefix = prefix
	}
}

// NewRedis constructs a Redis-backed ticket store.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *RedisTicketStore {
	s := &RedisTicketStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisTicketStore) key(ticket string) string {
	return s.keyPrefix + ticketKeySegment + ticket
}

// Put stores the binding with a TTL matching its remaining lifetime.
// SET NX rejects a colliding ticket id.
func (s *RedisTicketStore) Put(ctx context.Context, binding *models.TicketBinding) error {
	ttl := binding.ExpiresAt.Sub(binding.CreatedAt)
	if ttl <= 0 {
		return fmt.Errorf("ticket lifetime must be positive, got %s", ttl)
	}
	data, err := json.Marshal(binding)
	if err != nil {
		return fmt.Errorf("marshal ticket binding: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(binding.Ticket), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("store ticket: %w", err)
	}
	if !ok {
		return fmt.Errorf("ticket already bound: %w", sentinel.ErrConflict)
	}
	return nil
}

// TakeIfValid atomically reads and deletes the binding.
func (s *RedisTicketStore) TakeIfValid(ctx context.Context, ticket string, now time.Time) (*models.TicketBinding, error) {
	data, err := s.client.GetDel(ctx, s.key(ticket)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("ticket not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("take ticket: %w", err)
	}

	var binding models.TicketBinding
	if err := json.Unmarshal(data, &binding); err != nil {
		return nil, fmt.Errorf("unmarshal ticket binding: %w", err)
	}
	// Redis expiry has second granularity on some setups; recheck.
	if binding.IsExpired(now) {
		return nil, fmt.Errorf("ticket expired at %s: %w", binding.ExpiresAt.Format(time.RFC3339), sentinel.ErrExpired)
	}
	return &binding, nil
}

// DeleteExpired is a no-op: Redis evicts expired keys itself.
func (s *RedisTicketStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Health pings Redis.
func (s *RedisTicketStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
