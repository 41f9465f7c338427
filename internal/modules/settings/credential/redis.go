package credential

import (
	"context"
	"strings"

	pkgredis "github.com/firstword/responder/internal/pkg/redis"
)

// RedisStore keeps the slot in a single key without expiry.
type RedisStore struct {
	client *pkgredis.Client
	key    string
}

func NewRedisStore(client *pkgredis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) Get(ctx context.Context) (string, bool, error) {
	return r.client.Get(ctx, r.key)
}

func (r *RedisStore) Set(ctx context.Context, value string) error {
	return r.client.Set(ctx, r.key, strings.TrimSpace(value), 0)
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key)
}
