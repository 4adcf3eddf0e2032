package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker guards a job so that only one instance runs it at a time
type Locker interface {
	TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, owner string) error
}

type localLocker struct{}

func (localLocker) TryAcquire(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}

func (localLocker) Release(context.Context, string, string) error { return nil }

// only the owner may delete the key
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds job locks as expiring redis keys
type RedisLocker struct {
	client lockClient
	prefix string
}

type lockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// NewRedisLocker returns a locker storing keys under prefix
func NewRedisLocker(client lockClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

func (l *RedisLocker) key(name string) string {
	return l.prefix + name
}

// TryAcquire sets the lock key when it is absent
func (l *RedisLocker) TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.key(name), owner, ttl).Result()
}

// Release deletes the lock key when owner still holds it
func (l *RedisLocker) Release(ctx context.Context, name, owner string) error {
	return releaseScript.Run(ctx, l.client, []string{l.key(name)}, owner).Err()
}
