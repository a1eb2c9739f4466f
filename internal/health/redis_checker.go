package health

import (
	"context"
	"fmt"
	"time"

	redisstorage "github.com/taoyao-code/camera-bridge/internal/storage/redis"
)

// RedisChecker 状态缓存检查；缓存不可用只影响状态查询，记为降级
type RedisChecker struct {
	client *redisstorage.Client
}

func NewRedisChecker(client *redisstorage.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.client.HealthCheck(ctx); err != nil {
		return since(start, StatusDegraded, fmt.Sprintf("ping failed: %v", err))
	}

	stats := c.client.PoolStats()
	utilization := 0.0
	if stats.TotalConns > 0 {
		utilization = float64(stats.TotalConns-stats.IdleConns) / float64(stats.TotalConns)
	}
	r := since(start, StatusHealthy, "ok")
	if utilization > 0.9 {
		r.Status, r.Message = StatusDegraded, "connection pool near limit"
	}
	r.Details = map[string]any{
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"timeouts":    stats.Timeouts,
		"utilization": fmt.Sprintf("%.1f%%", utilization*100),
	}
	return r
}
