package config

// Redis backs the distributed rate limiter and the browse-response
// cache. Connection parameters come from the environment; when the
// server cannot be reached at startup the constructor returns nil and
// both features degrade to pass-through, so the API keeps working
// without Redis.

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from REDIS_ADDR (host:port, default
// localhost:6379), REDIS_PASSWORD and REDIS_DB. It pings once with a
// short timeout and returns nil when the server is unreachable.
func NewRedisClient() *redis.Client {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	db := 0
	if v := envStr("REDIS_DB", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: envStr("REDIS_PASSWORD", ""),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis: unreachable at %s, rate limiting and caching disabled: %v", addr, err)
		_ = client.Close()
		return nil
	}
	return client
}
