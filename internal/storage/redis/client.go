package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
)

// DefaultKeyPrefix 未配置 keyPrefix 时的键前缀
const DefaultKeyPrefix = "camera"

// Client go-redis 客户端加上键命名空间
type Client struct {
	*redis.Client
	prefix string
}

// NewClient 按配置连接并 Ping 一次；连接失败时关闭客户端
func NewClient(cfg cfgpkg.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return Wrap(rdb, cfg.KeyPrefix), nil
}

// Wrap 复用已有连接（测试中指向 miniredis）；prefix 为空时用 DefaultKeyPrefix
func Wrap(rdb *redis.Client, prefix string) *Client {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Client{Client: rdb, prefix: prefix}
}

// Key 拼接命名空间键，如 Key("A", "state") -> camera:A:state
func (c *Client) Key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// HealthCheck Ping
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
