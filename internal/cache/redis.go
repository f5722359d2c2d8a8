// Package cache wraps the redis client used for short-lived portal state:
// OTP codes, verification attempt counters and request rate limits.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key does not exist or has expired.
var ErrCacheMiss = errors.New("cache: key not found")

type Config struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	Prefix      string
}

type Client struct {
	raw    *redis.Client
	prefix string
}

// New connects to redis and verifies the connection with a ping.
func New(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "investorportal:"
	}

	return &Client{raw: rdb, prefix: prefix}, nil
}

func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) withPrefix(key string) string {
	return c.prefix + key
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.raw.Set(ctx, c.withPrefix(key), value, ttl).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.raw.Get(ctx, c.withPrefix(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.withPrefix(k)
	}
	return c.raw.Del(ctx, prefixed...).Err()
}

// Incr increments a counter, setting ttl on first increment. Used for OTP
// attempt limits and per-phone request throttling.
func (c *Client) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	prefixed := c.withPrefix(key)

	pipe := c.raw.TxPipeline()
	incr := pipe.Incr(ctx, prefixed)
	pipe.ExpireNX(ctx, prefixed, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
