package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-listing/internal/exchange"
	"order-listing/internal/order"
)

// OrderPlacer 提交单笔订单。
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, o order.Order) (exchange.Result, error)
}

// AccountClient 为单个账户的交易所客户端。
type AccountClient interface {
	OrderPlacer
	GetAccount(ctx context.Context) (exchange.AccountInfo, error)
	Close() error
}

// RunConfig 为一次批量提交的运行参数。
type RunConfig struct {
	RateLimit     float64
	BackoffFactor float64
	MaxAttempts   int
	DryRun        bool
}

// Validate 校验运行参数。
func (c RunConfig) Validate() error {
	switch {
	case c.RateLimit <= 0:
		return fmt.Errorf("execution: rate_limit 必须大于0，当前 %v", c.RateLimit)
	case c.BackoffFactor < 1:
		return fmt.Errorf("execution: backoff_factor 不能小于1，当前 %v", c.BackoffFactor)
	case c.MaxAttempts < 1:
		return fmt.Errorf("execution: retry_attempts 至少为1，当前 %d", c.MaxAttempts)
	}
	return nil
}

var (
	ErrRetryExhausted   = errors.New("order retries exhausted")
	ErrMissingClient    = errors.New("no exchange client for account")
	ErrCredentialCheck  = errors.New("api credential validation failed")
	ErrRunnerAlreadyRun = errors.New("runner has already been run")
)

// RetryExhaustedError 表示某笔订单用尽重试次数或遇到不可重试的错误。
type RetryExhaustedError struct {
	Index    int
	Account  string
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("order %d (account %s) failed after %d attempt(s): %v", e.Index, e.Account, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() []error {
	return []error{ErrRetryExhausted, e.Err}
}

// Report 为一次运行的结果摘要。
type Report struct {
	RunID      string
	Total      int
	Confirmed  int
	Skipped    int
	Previewed  int
	HaltedAt   int
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Summary 返回运行结束时的汇总信息。
func (r Report) Summary() string {
	switch {
	case r.DryRun && r.HaltedAt < 0:
		return "dry run completed, no orders submitted"
	case r.HaltedAt >= 0:
		return fmt.Sprintf("%d orders confirmed, batch halted at order %d", r.Confirmed+r.Skipped, r.HaltedAt)
	default:
		return "all orders confirmed"
	}
}
