package cache

import (
	"context"
	"log/slog"
	"time"

	"keyshop/internal/pkg/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis for the stock view cache. A nil client is
// returned when the server is unreachable; callers degrade to uncached reads.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, stock cache disabled", "addr", cfg.Addr, "error", err.Error())
		return nil
	}
	return client
}
