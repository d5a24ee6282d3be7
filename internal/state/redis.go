package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKV is the subset of the go-redis client used for green indices.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// #region redis-store
// RedisGreenStore keeps green indices in Redis so several controller replicas
// can share one view of which lane is green.
type RedisGreenStore struct {
	client redisKV
	prefix string
}

// NewRedisGreenStore connects to Redis at addr.
func NewRedisGreenStore(ctx context.Context, addr string) (*RedisGreenStore, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return newRedisGreenStore(rdb), rdb, nil
}

func newRedisGreenStore(client redisKV) *RedisGreenStore {
	return &RedisGreenStore{client: client, prefix: "signal:green:"}
}

// CurrentGreen reads the green index. It returns ErrNotFound when the key is
// absent.
func (r *RedisGreenStore) CurrentGreen(ctx context.Context, id string) (int, error) {
	idx, err := r.client.Get(ctx, r.prefix+id).Int()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("intersection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("redis get green %s: %w", id, err)
	}
	return idx, nil
}

// SetCurrentGreen stores the green index with no expiry.
func (r *RedisGreenStore) SetCurrentGreen(ctx context.Context, id string, idx int) error {
	if err := r.client.Set(ctx, r.prefix+id, idx, 0).Err(); err != nil {
		return fmt.Errorf("redis set green %s: %w", id, err)
	}
	return nil
}

// #endregion redis-store
