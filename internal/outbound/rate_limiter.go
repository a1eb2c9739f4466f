package outbound

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimiter 链路写出节流（Token Bucket）
type RateLimiter struct {
	limiter    *rate.Limiter
	ratePerSec int
	burst      int
	allowed    atomic.Int64
	rejected   atomic.Int64
}

// NewRateLimiter ratePerSec: 稳定写出速率；burst: 突发容量（一个窗口内可写出的 Key 数）
func NewRateLimiter(ratePerSec int, burst int) *RateLimiter {
	if ratePerSec <= 0 {
		ratePerSec = 200
	}
	if burst <= 0 {
		burst = 16
	}
	return &RateLimiter{
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		ratePerSec: ratePerSec,
		burst:      burst,
	}
}

// Wait 等待令牌，ctx 到期则放弃
func (l *RateLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		l.rejected.Add(1)
		return err
	}
	l.allowed.Add(1)
	return nil
}

// Stats 统计
func (l *RateLimiter) Stats() RateLimiterStats {
	return RateLimiterStats{
		RatePerSecond: l.ratePerSec,
		Burst:         l.burst,
		AllowedTotal:  l.allowed.Load(),
		RejectedTotal: l.rejected.Load(),
	}
}

// RateLimiterStats 节流统计
type RateLimiterStats struct {
	RatePerSecond int   `json:"rate_per_second"`
	Burst         int   `json:"burst"`
	AllowedTotal  int64 `json:"allowed_total"`
	RejectedTotal int64 `json:"rejected_total"`
}
