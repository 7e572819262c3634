package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements CounterStore on Redis, giving multiple server
// instances a shared view of the counters. Windows are enforced with key
// TTLs: the first increment of a window sets the expiry, and Redis reclaims
// the counter when the window lapses. No fairness is guaranteed between
// instances racing on the same key beyond INCR's own atomicity.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisStoreConfig configures the Redis store.
type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces the counter keys. Default "ganymede:rl:".
	Prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisStoreConfig) (*RedisStore, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "ganymede:rl:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %q: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client, prefix: cfg.Prefix}, nil
}

// incrScript increments the counter and pins the window TTL on first use,
// returning the count and the remaining window in milliseconds. Running as a
// script keeps INCR and PEXPIRE atomic even across instances.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// Increment implements CounterStore.
func (r *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := time.Now()

	res, err := incrScript.Run(ctx, r.client, []string{r.prefix + key}, window.Milliseconds()).Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment counter for %q: %w", key, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected script reply for %q: %v", key, res)
	}

	count, ok := res[0].(int64)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unexpected count type %T for %q", res[0], key)
	}
	ttlMillis, ok := res[1].(int64)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unexpected ttl type %T for %q", res[1], key)
	}

	// The window started when its TTL was pinned: expiry minus length.
	windowStart := now.Add(time.Duration(ttlMillis)*time.Millisecond - window)
	return count, windowStart, nil
}

// Cleanup is a no-op: Redis expires counters via their TTLs.
func (r *RedisStore) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

// Close releases the Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
