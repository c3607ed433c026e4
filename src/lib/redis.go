package lib

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const CALLBACK_REPLAY_TTL = 24 * time.Hour

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		return nil
	}
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// CallbackReplayGuard remembers gateway callbacks that were already applied.
// A nil guard, or one without a client, never reports a callback as seen.
type CallbackReplayGuard struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewCallbackReplayGuard(rdb redis.Cmdable, ttl time.Duration) *CallbackReplayGuard {
	if ttl <= 0 {
		ttl = CALLBACK_REPLAY_TTL
	}
	return &CallbackReplayGuard{rdb: rdb, ttl: ttl}
}

func (g *CallbackReplayGuard) Seen(ctx context.Context, key string) (bool, error) {
	if g == nil || g.rdb == nil {
		return false, nil
	}
	n, err := g.rdb.Exists(ctx, key).Result()
	if err != nil {
		log.Printf("[redis] Error checking key %s: %s\n", key, err.Error())
		return false, err
	}
	return n > 0, nil
}

func (g *CallbackReplayGuard) Remember(ctx context.Context, key string) error {
	if g == nil || g.rdb == nil {
		return nil
	}
	if err := g.rdb.Set(ctx, key, "1", g.ttl).Err(); err != nil {
		log.Printf("[redis] Failed to set value for key %s: %s\n", key, err.Error())
		return err
	}
	return nil
}
