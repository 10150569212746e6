package execution

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"order-listing/internal/exchange"
	"order-listing/internal/order"
)

// 单次退避等待的上限。
const maxBackoffInterval = 24 * time.Hour

// Submission 为一次待提交的订单。
type Submission struct {
	RunID  string
	Index  int
	Order  order.Order
	Placer OrderPlacer
}

// Outcome 为成功提交的结果。
type Outcome struct {
	Result   exchange.Result
	Attempts int
}

// RetryScheduler 对单笔订单执行有上限的指数退避重试。
type RetryScheduler struct {
	maxAttempts int
	factor      float64
	sleep       Sleeper
	logger      *zap.Logger
	observer    Observer
}

// NewRetryScheduler 创建重试调度器。
func NewRetryScheduler(maxAttempts int, factor float64, logger *zap.Logger, observer Observer) *RetryScheduler {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if factor < 1 {
		factor = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &RetryScheduler{
		maxAttempts: maxAttempts,
		factor:      factor,
		sleep:       sleepContext,
		logger:      logger,
		observer:    observer,
	}
}

func (s *RetryScheduler) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = s.factor
	b.RandomizationFactor = 0
	b.MaxInterval = maxBackoffInterval
	b.Reset()
	return b
}

// Submit 提交订单直到成功或用尽重试次数。
// 第 k 次失败(从0计)后等待 factor^k 秒，最后一次失败后不再等待。
// 成功时在 state 中登记一次行号。
func (s *RetryScheduler) Submit(ctx context.Context, sub Submission, state *State) (Outcome, error) {
	bo := s.newBackOff()
	logger := s.logger.With(
		zap.Int("index", sub.Index),
		zap.String("pair", sub.Order.Pair),
		zap.String("account", sub.Order.Account),
	)

	var lastErr error
	attempts := 0
	for attempts < s.maxAttempts {
		if err := ctx.Err(); err != nil {
			return Outcome{Attempts: attempts}, err
		}

		attempts++
		result, err := sub.Placer.PlaceOrder(ctx, sub.Order)
		if err == nil {
			state.Mark(sub.Index)
			logger.Info("订单已确认",
				zap.Int("attempt", attempts),
				zap.String("message", result.Message),
			)
			return Outcome{Result: result, Attempts: attempts}, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{Attempts: attempts}, ctxErr
		}

		kind, _ := exchange.KindOf(err)
		retry := retryable(err) && attempts < s.maxAttempts
		ev := AttemptEvent{
			RunID:   sub.RunID,
			Index:   sub.Index,
			Order:   sub.Order,
			Attempt: attempts,
			Final:   !retry,
			Kind:    kind,
			Err:     err,
		}

		if !retry {
			logger.Error("下单失败",
				zap.Int("attempt", attempts),
				zap.String("kind", kind.String()),
				zap.Error(err),
			)
			s.observer.AttemptFailed(ctx, ev)
			break
		}

		wait := bo.NextBackOff()
		ev.Wait = wait
		logger.Warn("下单失败，等待重试",
			zap.Int("attempt", attempts),
			zap.String("kind", kind.String()),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		s.observer.AttemptFailed(ctx, ev)

		if err := s.sleep(ctx, wait); err != nil {
			return Outcome{Attempts: attempts}, err
		}
	}

	return Outcome{Attempts: attempts}, &RetryExhaustedError{
		Index:    sub.Index,
		Account:  sub.Order.Account,
		Attempts: attempts,
		Err:      lastErr,
	}
}

// retryable 判断错误是否值得重试：凭证错误不重试，其余交易所与网络错误均重试。
func retryable(err error) bool {
	if kind, ok := exchange.KindOf(err); ok && kind == exchange.KindCredentialValidation {
		return false
	}
	return true
}
