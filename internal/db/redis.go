package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/attendry/attendry-api/internal/config"
)

// OpenRedis connects with short timeouts so a degraded Redis slows requests
// instead of hanging them.
func OpenRedis(conf *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         conf.Addr,
		Password:     conf.Password,
		DB:           conf.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

func OpenRedisWithURL(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL -> %w", err)
	}

	return redis.NewClient(opts), nil
}

// PingRedis reports Redis connectivity for the healthcheck.
func PingRedis(ctx context.Context, client *redis.Client) bool {
	if client == nil {
		return false
	}

	return client.Ping(ctx).Err() == nil
}
