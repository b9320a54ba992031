package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Laimiu-debug/quantscan/pkg/config"
)

// connectTimeout bounds the startup ping so a missing Redis fails fast
// instead of hanging the process.
const connectTimeout = 5 * time.Second

// Client wraps go-redis for the daily-pool cache. With Redis disabled
// in config every operation is a no-op and the screener runs uncached.
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// New connects using the Redis section of the config. A disabled
// config yields a working no-op client, not an error.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{rdb: rdb, enabled: true}, nil
}

// Ping verifies the connection for health checks. A disabled client is
// always healthy.
func (c *Client) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Enabled reports whether a live connection backs the client.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis exposes the underlying client to the cache helpers.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Close releases the connection.
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
