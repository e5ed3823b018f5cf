package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"lineup_server/config"
)

// GuardLocker hands out short-lived mutual-exclusion guards. The coordinator
// uses it to gate re-entrant actions (mode selection, session-resume checks);
// the TTL doubles as the safety timeout that releases a guard whose holder
// never came back.
type GuardLocker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

type GuardCache struct {
	Client *redis.Client
}

// NewGuardCache initializes the Redis client from config. Only Addr is
// mandatory, Password/DB are optional.
func NewGuardCache(cfg *config.Config) *GuardCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &GuardCache{Client: redis.NewClient(opts)}
}

func (c *GuardCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// TryAcquire takes the named guard if nobody holds it. Returns false when a
// concurrent holder already has it.
func (c *GuardCache) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, keyForGuard(name), 1, ttl).Result()
}

// Release drops the guard early instead of waiting for the TTL.
func (c *GuardCache) Release(ctx context.Context, name string) error {
	return c.Client.Del(ctx, keyForGuard(name)).Err()
}

func keyForGuard(name string) string {
	return "guard:" + name
}
