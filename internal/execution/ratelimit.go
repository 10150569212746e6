package execution

import (
	"context"
	"time"
)

// Sleeper 为可被 ctx 打断的等待，是执行流仅有的挂起点。
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimiter 在每笔订单处理完成后固定等待 1/rateLimit 秒。
// 不是令牌桶，也不扣除请求与重试本身耗费的时间，出现退避时实际吞吐会低于名义速率。
type RateLimiter struct {
	interval time.Duration
	sleep    Sleeper
}

// NewRateLimiter 按每秒请求数创建限速器，rateLimit 必须大于0。
func NewRateLimiter(rateLimit float64) *RateLimiter {
	var interval time.Duration
	if rateLimit > 0 {
		interval = time.Duration(float64(time.Second) / rateLimit)
	}
	return &RateLimiter{
		interval: interval,
		sleep:    sleepContext,
	}
}

// Interval 返回两笔订单之间的固定间隔。
func (l *RateLimiter) Interval() time.Duration {
	return l.interval
}

// Wait 等待一个固定间隔。
func (l *RateLimiter) Wait(ctx context.Context) error {
	return l.sleep(ctx, l.interval)
}
