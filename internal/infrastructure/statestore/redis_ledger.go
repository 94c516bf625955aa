package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "oauth_state:"

// RedisLedger stores issued OAuth state nonces in Redis. Each nonce maps to
// the shop it was issued for and is deleted when consumed.
type RedisLedger struct {
	client redis.UniversalClient
}

// NewRedisLedger creates a ledger on an existing Redis client
func NewRedisLedger(client redis.UniversalClient) *RedisLedger {
	return &RedisLedger{client: client}
}

// NewRedisLedgerFromURL parses a redis:// URL and pings the server
func NewRedisLedgerFromURL(ctx context.Context, redisURL string) (*RedisLedger, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisLedger(client), nil
}

// Save records state for shop until ttl elapses
func (l *RedisLedger) Save(ctx context.Context, state string, shop string, ttl time.Duration) error {
	if state == "" {
		return errors.New("oauth state is required")
	}
	if err := l.client.Set(ctx, keyPrefix+state, shop, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes state. Unknown, expired or already
// consumed states return "".
func (l *RedisLedger) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", nil
	}
	shop, err := l.client.GetDel(ctx, keyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return shop, nil
}

// Close releases the Redis connection
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
