package health

import (
	"context"
	"time"
)

// Status 检查状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"  // 相机控制可用，下游或部分相机异常
	StatusUnhealthy Status = "unhealthy" // 无法控制任何相机
)

// CheckResult 单项检查结果，Latency 以纳秒序列化
type CheckResult struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency"`
}

// Checker 由 Aggregator 并发调用，需自行遵守 ctx 超时
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

func since(start time.Time, status Status, message string) CheckResult {
	return CheckResult{Status: status, Message: message, Latency: time.Since(start)}
}
