package redis

import (
	"context"
	"errors"

	"shipboard-community/internal/config"

	"github.com/go-redis/redis/v8"
)

// HashQuery names one HMGET inside a pipelined batch read.
type HashQuery struct {
	Key    string
	Fields []string
}

type RedisClient interface {
	Ping(ctx context.Context) error
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key string, values ...interface{}) error
	HDel(ctx context.Context, key string, fields ...string) error
	HMGetPipelined(ctx context.Context, queries []HashQuery) ([][]interface{}, error)
	SAdd(ctx context.Context, key string, members ...interface{}) error
	SRem(ctx context.Context, key string, members ...interface{}) error
	SMembers(ctx context.Context, key string) ([]string, error)
	ZIncrBy(ctx context.Context, key string, incr float64, member string) (float64, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	Del(ctx context.Context, keys ...string) error
	Close() error
}

var _ RedisClient = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redClient, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redClient{cli: c}, nil
}

// IsNil reports whether err is the store's "no such key/field" reply.
func IsNil(err error) bool { return errors.Is(err, redis.Nil) }

func (c *redClient) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *redClient) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	return c.cli.HIncrBy(ctx, key, field, delta).Result()
}

func (c *redClient) HGet(ctx context.Context, key, field string) (string, error) {
	return c.cli.HGet(ctx, key, field).Result()
}

func (c *redClient) HSet(ctx context.Context, key string, values ...interface{}) error {
	return c.cli.HSet(ctx, key, values...).Err()
}

func (c *redClient) HDel(ctx context.Context, key string, fields ...string) error {
	return c.cli.HDel(ctx, key, fields...).Err()
}

// HMGetPipelined issues every HMGET in one pipeline, so a multi-bucket read
// costs a single round trip. Results are positionally aligned with queries;
// missing fields come back as nil entries.
func (c *redClient) HMGetPipelined(ctx context.Context, queries []HashQuery) ([][]interface{}, error) {
	pipe := c.cli.Pipeline()
	cmds := make([]*redis.SliceCmd, len(queries))
	for i, q := range queries {
		cmds[i] = pipe.HMGet(ctx, q.Key, q.Fields...)
	}
	if _, err := pipe.Exec(ctx); err != nil && !IsNil(err) {
		return nil, err
	}
	out := make([][]interface{}, len(queries))
	for i, cmd := range cmds {
		out[i] = cmd.Val()
	}
	return out, nil
}

func (c *redClient) SAdd(ctx context.Context, key string, members ...interface{}) error {
	return c.cli.SAdd(ctx, key, members...).Err()
}

func (c *redClient) SRem(ctx context.Context, key string, members ...interface{}) error {
	return c.cli.SRem(ctx, key, members...).Err()
}

func (c *redClient) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.cli.SMembers(ctx, key).Result()
}

func (c *redClient) ZIncrBy(ctx context.Context, key string, incr float64, member string) (float64, error) {
	return c.cli.ZIncrBy(ctx, key, incr, member).Result()
}

func (c *redClient) ZScore(ctx context.Context, key, member string) (float64, error) {
	return c.cli.ZScore(ctx, key, member).Result()
}

func (c *redClient) Del(ctx context.Context, keys ...string) error {
	return c.cli.Del(ctx, keys...).Err()
}

func (c *redClient) Close() error { return c.cli.Close() }
