package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/app"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/config"
	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/logger"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 初始化日志
	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.Service.Name,
		Environment: cfg.Service.Env,
	}); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting service",
		zap.String("service", cfg.Service.Name),
		zap.String("env", cfg.Service.Env),
		zap.String("source", cfg.Tunables.Source),
		zap.Int("http_port", cfg.Service.HTTPPort))

	application := app.New(cfg)

	if err := application.Run(); err != nil {
		logger.Fatal("failed to start application", zap.Error(err))
	}

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown gracefully", zap.Error(err))
	}

	logger.Info("service stopped")
}
