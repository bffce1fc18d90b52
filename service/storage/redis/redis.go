package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config for the Redis client.
type Config struct {
	Addr     string
	Password string
	DB       int
}

var client *redis.Client

// InitRedis connects and pings; on error the global client stays nil and
// callers degrade to cache-less operation.
func InitRedis(cfg Config) error {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return err
	}
	client = c
	return nil
}

// GetRedis returns the shared client, nil when InitRedis never succeeded.
func GetRedis() *redis.Client { return client }
