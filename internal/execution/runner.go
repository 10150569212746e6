package execution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"order-listing/internal/order"
)

// Runner 按行顺序逐笔提交一批订单。
// 单一执行流，任意一笔订单用尽重试后放弃剩余订单。
type Runner struct {
	cfg       RunConfig
	orders    *order.OrderSet
	precision *order.PrecisionTable
	clients   map[string]AccountClient

	state     *State
	scheduler *RetryScheduler
	limiter   *RateLimiter
	observer  Observer
	logger    *zap.Logger
	runID     string
	now       func() time.Time

	mu      sync.Mutex
	started bool
}

// RunnerOption 调整 Runner。
type RunnerOption func(*Runner)

// WithState 复用已有的执行状态，已确认的行号会被跳过。
func WithState(state *State) RunnerOption {
	return func(r *Runner) {
		if state != nil {
			r.state = state
		}
	}
}

// WithObserver 设置事件观察者。
func WithObserver(observer Observer) RunnerOption {
	return func(r *Runner) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// WithSleeper 替换限速与退避使用的等待函数。
func WithSleeper(sleep Sleeper) RunnerOption {
	return func(r *Runner) {
		if sleep != nil {
			r.scheduler.sleep = sleep
			r.limiter.sleep = sleep
		}
	}
}

// WithRunID 指定运行标识。
func WithRunID(id string) RunnerOption {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// NewRunner 创建批量提交器，clients 以订单中的账户为键。
func NewRunner(cfg RunConfig, orders *order.OrderSet, precision *order.PrecisionTable, clients map[string]AccountClient, logger *zap.Logger, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if orders == nil || precision == nil {
		return nil, errors.New("execution: 订单表与精度表不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clients == nil {
		clients = map[string]AccountClient{}
	}

	r := &Runner{
		cfg:       cfg,
		orders:    orders,
		precision: precision,
		clients:   clients,
		state:     NewState(),
		limiter:   NewRateLimiter(cfg.RateLimit),
		observer:  NopObserver{},
		logger:    logger,
		runID:     uuid.NewString(),
		now:       time.Now,
	}
	r.scheduler = NewRetryScheduler(cfg.MaxAttempts, cfg.BackoffFactor, logger, nil)
	for _, opt := range opts {
		opt(r)
	}
	r.scheduler.observer = r.observer
	r.logger = r.logger.With(zap.String("run_id", r.runID))
	r.scheduler.logger = r.logger

	return r, nil
}

// RunID 返回运行标识。
func (r *Runner) RunID() string {
	return r.runID
}

// State 返回执行状态。
func (r *Runner) State() *State {
	return r.state
}

// Run 执行一次批量提交。无论成功与否，所有客户端都会被关闭且只关闭一次。
// Runner 只能运行一次。
func (r *Runner) Run(ctx context.Context) (report Report, err error) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return Report{RunID: r.runID, HaltedAt: -1, DryRun: r.cfg.DryRun}, ErrRunnerAlreadyRun
	}
	r.started = true
	r.mu.Unlock()

	report = Report{
		RunID:     r.runID,
		Total:     r.orders.Len(),
		HaltedAt:  -1,
		DryRun:    r.cfg.DryRun,
		StartedAt: r.now().UTC(),
	}

	defer func() {
		if closeErr := r.closeClients(); closeErr != nil {
			r.logger.Warn("关闭交易所客户端失败", zap.Error(closeErr))
		}
		report.FinishedAt = r.now().UTC()
		r.observer.RunFinished(ctx, report, err)
	}()

	r.logger.Info("开始批量提交",
		zap.Int("orders", report.Total),
		zap.Bool("dry_run", r.cfg.DryRun),
		zap.Float64("rate_limit", r.cfg.RateLimit),
		zap.Int("max_attempts", r.cfg.MaxAttempts),
	)

	if err = order.Validate(r.orders, r.precision); err != nil {
		r.logger.Error("订单校验失败", zap.Error(err))
		return report, err
	}

	if err = r.checkClients(); err != nil {
		r.logger.Error("账户客户端缺失", zap.Error(err))
		return report, err
	}

	if !r.cfg.DryRun {
		if err = r.verifyCredentials(ctx); err != nil {
			r.logger.Error("API 凭证校验失败", zap.Error(err))
			return report, err
		}
	}

	// 每处理完一笔订单(包括跳过与模拟)都固定等待一个限速间隔。
	for i, o := range r.orders.Orders {
		switch {
		case r.state.Has(i):
			report.Skipped++
			r.logger.Debug("订单已确认，跳过", zap.Int("index", i))
		case r.cfg.DryRun:
			r.logger.Info("模拟运行，未提交订单",
				zap.Int("index", i),
				zap.String("pair", o.Pair),
				zap.String("direction", string(o.Direction)),
				zap.String("price", o.Price.String()),
				zap.String("quantity", o.Quantity.String()),
				zap.String("account", o.Account),
			)
			report.Previewed++
		default:
			outcome, subErr := r.scheduler.Submit(ctx, Submission{
				RunID:  r.runID,
				Index:  i,
				Order:  o,
				Placer: r.clients[o.Account],
			}, r.state)
			if subErr != nil {
				report.HaltedAt = i
				r.observer.OrderFailed(ctx, OrderEvent{
					RunID:    r.runID,
					Index:    i,
					Order:    o,
					Attempts: outcome.Attempts,
					Err:      subErr,
				})
				r.logger.Error(report.Summary(), zap.Error(subErr))
				return report, subErr
			}
			report.Confirmed++
			r.observer.OrderConfirmed(ctx, OrderEvent{
				RunID:    r.runID,
				Index:    i,
				Order:    o,
				Attempts: outcome.Attempts,
				Result:   outcome.Result,
			})
		}

		if err = r.limiter.Wait(ctx); err != nil {
			if i+1 < report.Total {
				report.HaltedAt = i + 1
			}
			r.logger.Warn("运行被取消", zap.Error(err))
			return report, err
		}
	}

	r.logger.Info(report.Summary(),
		zap.Int("confirmed", report.Confirmed),
		zap.Int("skipped", report.Skipped),
		zap.Int("previewed", report.Previewed),
	)
	return report, nil
}

// checkClients 确认每笔订单的账户都有对应客户端，不发起网络请求。
func (r *Runner) checkClients() error {
	var missing []string
	seen := make(map[string]struct{})
	for _, o := range r.orders.Orders {
		if _, ok := r.clients[o.Account]; ok {
			continue
		}
		if _, ok := seen[o.Account]; ok {
			continue
		}
		seen[o.Account] = struct{}{}
		missing = append(missing, o.Account)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingClient, missing)
	}
	return nil
}

// verifyCredentials 按精度表顺序校验每个已配置账户的凭证，首个失败即中止。
func (r *Runner) verifyCredentials(ctx context.Context) error {
	for _, rule := range r.precision.Rules() {
		client, ok := r.clients[rule.Account]
		if !ok {
			continue
		}
		info, err := client.GetAccount(ctx)
		if err != nil {
			return fmt.Errorf("%w: account %s: %w", ErrCredentialCheck, rule.Account, err)
		}
		r.logger.Info("API 凭证校验通过",
			zap.String("account", rule.Account),
			zap.String("balance", info.Balance.String()),
		)
	}
	return nil
}

func (r *Runner) closeClients() error {
	accounts := make([]string, 0, len(r.clients))
	for account := range r.clients {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	var errs error
	for _, account := range accounts {
		if err := r.clients[account].Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("account %s: %w", account, err))
		}
	}
	return errs
}
