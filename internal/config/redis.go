package config

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a Redis client from the redis section and pings it.
// Returns a ready-to-use Redis client or an error.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	log.Printf("NewRedisClient: addr=%s db=%d passwordSet=%v", addr, cfg.DB, cfg.Password != "")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("NewRedisClient: failed to ping Redis: %v", err)
		client.Close()
		return nil, err
	}

	log.Printf("NewRedisClient: successfully connected to Redis")
	return client, nil
}
