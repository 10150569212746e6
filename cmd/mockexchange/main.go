package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"order-listing/internal/config"
	"order-listing/internal/log"
	"order-listing/internal/mockexchange"
)

func main() {
	var (
		addr      string
		verifySig bool
		level     string
	)
	flag.StringVar(&addr, "addr", ":8081", "监听地址")
	flag.BoolVar(&verifySig, "verify-signature", false, "校验请求签名")
	flag.StringVar(&level, "log-level", "info", "日志级别")
	flag.Parse()

	logger, err := log.NewLogger(config.LoggingConfig{
		Level:       level,
		Encoding:    "console",
		Development: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	opts := []mockexchange.Option{mockexchange.WithLogger(logger)}
	if verifySig {
		opts = append(opts, mockexchange.WithSignatureCheck())
	}
	venue := mockexchange.NewServer(mockexchange.DefaultAccounts(), opts...)

	srv := &http.Server{
		Addr:              addr,
		Handler:           venue.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("关闭模拟交易所失败", zap.Error(err))
		}
	}()

	logger.Info("模拟交易所已启动", zap.String("addr", addr), zap.Bool("verify_signature", verifySig))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("模拟交易所异常退出", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("模拟交易所已停止", zap.Int("requests", venue.Requests()))
}
