package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// New dials Redis. The cache is an optional dependency: a failed ping is
// logged and the client still returned, so the API keeps serving with the
// read-path cache effectively disabled.
func New(ctx context.Context, addr string, logger *slog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil && logger != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	return client
}
