package nonce

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const nonceKeyPrefix = "nonce:"

// RedisRegistry shares consumed nonces across processes. Each token is stored
// with SET NX and a TTL equal to the validity window, so Redis expiry takes the
// place of the sweeper.
type RedisRegistry struct {
	client   *redis.Client
	validity time.Duration
}

type RedisOption func(*RedisRegistry)

// WithValidity sets how long a consumed token is remembered.
func WithValidity(d time.Duration) RedisOption {
	return func(r *RedisRegistry) {
		if d > 0 {
			r.validity = d
		}
	}
}

func NewRedisRegistry(client *redis.Client, opts ...RedisOption) *RedisRegistry {
	r := &RedisRegistry{client: client, validity: DefaultValidity}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *RedisRegistry) CheckAndConsume(ctx context.Context, token string) (bool, error) {
	fresh, err := r.client.SetNX(ctx, nonceKeyPrefix+token, "1", r.validity).Result()
	if err != nil {
		return false, fmt.Errorf("record nonce: %w", err)
	}
	return fresh, nil
}

var _ Registry = (*RedisRegistry)(nil)
