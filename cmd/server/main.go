package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/thereayou/ideaverse-chat/internal/config"
	"github.com/thereayou/ideaverse-chat/internal/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "ideaverse-chat")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	srv, err := NewServer(cfg, log)
	if err != nil {
		log.Fatal("server init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}
