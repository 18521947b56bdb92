package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codeberg.org/docflow/server/internal/logger"
)

const keyHistoryWindow = "docflow:history:%s"

// one SET NX EX key per history stream; the key's TTL is the window
type RedisThrottle struct {
	client *redis.Client
	window time.Duration
}

// connects to redis and verifies the connection
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("connected to redis")

	return client, nil
}

// creates a new redis throttle
func NewRedisThrottle(client *redis.Client, window time.Duration) *RedisThrottle {
	if window <= 0 {
		window = DefaultEditWindow
	}

	return &RedisThrottle{
		client: client,
		window: window,
	}
}

// claims the window atomically; only the first caller inside it wins
func (t *RedisThrottle) Allow(ctx context.Context, key Key, now time.Time) (bool, error) {
	ok, err := t.client.SetNX(ctx, redisKey(key), now.Unix(), t.window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim history window: %w", err)
	}

	return ok, nil
}

// the window was claimed in Allow
func (t *RedisThrottle) Record(context.Context, Key, time.Time) error {
	return nil
}

func redisKey(key Key) string {
	return fmt.Sprintf(keyHistoryWindow, key.String())
}
