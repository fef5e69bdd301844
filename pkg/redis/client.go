package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/signalscreen/backend/pkg/config"
)

// 연결 확인이 느리면 로컬 limiter/메모리 캐시로 넘어가도록 짧게 유지
const connectTimeout = 3 * time.Second

// Client is the shared connection behind the market cache and the per-source rate limits.
// A nil or disabled Client is valid: callers fall back to in-process equivalents.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb     *redis.Client
	addr    string
	enabled bool
}

// New connects when REDIS_ENABLED is set and verifies the connection with a bounded ping.
// Disabled config yields a disabled client and no error.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{enabled: false}, nil
	}

	addr := net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: connectTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: connection failed: %w", addr, err)
	}

	return &Client{
		rdb:     rdb,
		addr:    addr,
		enabled: true,
	}, nil
}

// Close closes the connection; safe on nil and disabled clients
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Enabled reports whether a live connection backs this client
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Addr returns host:port, empty when disabled
func (c *Client) Addr() string {
	if c == nil {
		return ""
	}
	return c.addr
}

// Redis returns the underlying go-redis client (cache and limiter scripts)
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
