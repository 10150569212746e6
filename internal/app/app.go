package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"order-listing/internal/config"
	"order-listing/internal/exchange"
	"order-listing/internal/execution"
	"order-listing/internal/loader"
	"order-listing/internal/metrics"
	"order-listing/internal/monitor"
	"order-listing/internal/order"
	"order-listing/internal/store"
)

// ErrNoCredentials 表示精度表中没有任何账户配置了完整凭证。
var ErrNoCredentials = errors.New("no valid api credentials")

type clientFactory func(cfg exchange.ClientConfig, cred exchange.Credential, logger *zap.Logger) (execution.AccountClient, error)

func dialExchange(cfg exchange.ClientConfig, cred exchange.Credential, logger *zap.Logger) (execution.AccountClient, error) {
	client, err := exchange.NewClient(cfg, cred, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// App 聚合核心依赖并驱动一次批量提交。
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.Store
	recorder *metrics.Recorder
	dial     clientFactory
}

// New 创建 App 实例，store 为空时不写审计日志。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		recorder: metrics.NewRecorder(),
		dial:     dialExchange,
	}
}

// Run 读取订单表与精度表，为每个账户建立客户端后执行一次批量提交。
func (a *App) Run(ctx context.Context) (execution.Report, error) {
	a.logger.Info("批量下单程序已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("exchange", a.cfg.Exchange.BaseURL),
		zap.Bool("dry_run", a.cfg.Run.DryRun),
	)

	tables, err := loader.LoadTables(ctx, a.cfg.Input.OrdersPath, a.cfg.Input.PrecisionPath)
	if err != nil {
		return execution.Report{HaltedAt: -1}, err
	}
	a.logger.Info("订单与精度表已加载",
		zap.Int("orders", tables.Orders.Len()),
		zap.Int("accounts", tables.Precision.Len()),
	)

	clients, err := a.buildClients(tables.Precision)
	if err != nil {
		return execution.Report{HaltedAt: -1}, err
	}

	observers := execution.Observers{a.recorder}
	if a.store != nil {
		monitorSvc, err := monitor.NewService(a.store, a.logger)
		if err != nil {
			return execution.Report{HaltedAt: -1}, multierr.Append(fmt.Errorf("初始化审计服务失败: %w", err), closeAll(clients))
		}
		observers = append(observers, monitorSvc)

		if a.cfg.Monitor.Enabled {
			serverCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			if err := startMonitorServer(serverCtx, monitorSvc, a.recorder, a.cfg.Monitor.Port, a.logger); err != nil {
				a.logger.Warn("监控接口启动失败", zap.Error(err))
			}
		}
	}

	runner, err := execution.NewRunner(execution.RunConfig{
		RateLimit:     a.cfg.Run.RateLimit,
		BackoffFactor: a.cfg.Run.BackoffFactor,
		MaxAttempts:   a.cfg.Run.RetryAttempts,
		DryRun:        a.cfg.Run.DryRun,
	}, tables.Orders, tables.Precision, clients, a.logger, execution.WithObserver(observers))
	if err != nil {
		return execution.Report{HaltedAt: -1}, multierr.Append(err, closeAll(clients))
	}

	return runner.Run(ctx)
}

// buildClients 按精度表行号匹配凭证槽位，凭证不全的账户记录日志后跳过。
func (a *App) buildClients(precision *order.PrecisionTable) (map[string]execution.AccountClient, error) {
	clientCfg := exchange.ClientConfig{
		BaseURL: a.cfg.Exchange.BaseURL,
		Timeout: a.cfg.Exchange.Timeout,
	}

	clients := make(map[string]execution.AccountClient, precision.Len())
	for i, rule := range precision.Rules() {
		slot := i + 1
		cred := a.cfg.Credential(slot)
		if !cred.Complete() {
			a.logger.Warn("账户缺少完整的 API 凭证，已跳过",
				zap.String("account", rule.Account),
				zap.Int("slot", slot),
			)
			continue
		}

		client, err := a.dial(clientCfg, exchange.Credential{
			APIKey:    cred.APIKey,
			APISecret: cred.APISecret,
			Account:   cred.Account,
		}, a.logger)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("初始化账户 %s 客户端失败: %w", rule.Account, err), closeAll(clients))
		}
		clients[rule.Account] = client
	}

	if len(clients) == 0 {
		return nil, ErrNoCredentials
	}
	return clients, nil
}

func closeAll(clients map[string]execution.AccountClient) error {
	var errs error
	for _, c := range clients {
		errs = multierr.Append(errs, c.Close())
	}
	return errs
}
