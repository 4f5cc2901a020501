package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache is the read-through cache used by repositories and the login limiter.
// Implementations treat a missing key as (false, nil).
type Cache interface {
	GetCache(ctx context.Context, key string, dest interface{}) (bool, error)
	SetCache(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteCache(ctx context.Context, keys ...string) error
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type Client struct {
	rdb *goredis.Client
}

func New(rdb *goredis.Client) *Client {
	return &Client{rdb: rdb}
}

/*
* Parse the url, build the client and ping it
* An unreachable redis is fatal at startup
 */
func Connect(ctx context.Context, url string) (*Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("while parsing REDIS_URL: %w", err)
	}
	rdb := goredis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("while pinging redis: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Msg("Redis connected")
	return New(rdb), nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) GetCache(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("while decoding cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Client) SetCache(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("while encoding %s for cache: %w", key, err)
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

func (c *Client) DeleteCache(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Increment bumps a counter; the window starts with the first increment.
func (c *Client) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Nop is used when REDIS_URL is not configured: nothing is cached and counters stay at zero.
type Nop struct{}

func (Nop) GetCache(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Nop) SetCache(context.Context, string, interface{}, time.Duration) error { return nil }
func (Nop) DeleteCache(context.Context, ...string) error { return nil }
func (Nop) Increment(context.Context, string, time.Duration) (int64, error) { return 0, nil }
