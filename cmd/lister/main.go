package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"order-listing/internal/app"
	"order-listing/internal/config"
	"order-listing/internal/log"
	"order-listing/internal/store"
)

func main() {
	var (
		configPath string
		dryRun     bool
		live       bool
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.BoolVar(&dryRun, "dry-run", false, "只打印订单，不提交")
	flag.BoolVar(&live, "live", false, "关闭模拟运行，真实提交订单")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	switch {
	case dryRun && live:
		fmt.Fprintln(os.Stderr, "-dry-run 与 -live 不能同时使用")
		os.Exit(2)
	case dryRun:
		cfg.Run.DryRun = true
	case live:
		cfg.Run.DryRun = false
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	listing := app.New(cfg, logger, sqliteStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := listing.Run(ctx)
	if err != nil {
		logger.Error("批量下单失败",
			zap.String("run_id", report.RunID),
			zap.Int("halted_at", report.HaltedAt),
			zap.Error(err),
		)
		// os.Exit 不会执行 defer。
		stop()
		_ = sqliteStore.Close()
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("批量下单完成", zap.String("run_id", report.RunID))
}
