package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ShowSync/internal/config"
	"ShowSync/internal/interfaces"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache 基于 redis 的日历文件缓存
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache 按配置连接 redis；cache.redis_url 为空或连接失败时返回 Noop 缓存
func NewRedisCache(ctx context.Context, cfg config.CacheConfig, logger *logrus.Logger) interfaces.DocumentCache {
	if cfg.RedisURL == "" {
		return Noop{}
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("redis地址解析失败，文档缓存不启用")
		return Noop{}
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("redis连接失败，文档缓存不启用")
		_ = client.Close()
		return Noop{}
	}
	logger.WithField("addr", opt.Addr).Info("文档缓存已启用")
	return NewRedisCacheWithClient(client, cfg.Prefix, cfg.TTL)
}

// NewRedisCacheWithClient 使用已有 client
func NewRedisCacheWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("读取缓存失败: %w", err)
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("写入缓存失败: %w", err)
	}
	return nil
}

// Close 关闭 redis 连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Noop 不缓存
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (Noop) Set(context.Context, string, string) error          { return nil }
