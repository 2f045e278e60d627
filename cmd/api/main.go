package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"restoreview/internal/app"
	"restoreview/internal/config"
	"restoreview/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init app", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close app", zap.Error(err))
		}
	}()

	if err := a.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
