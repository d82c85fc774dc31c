package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/thereayou/bolcha/internal/config"
	"github.com/thereayou/bolcha/pkg/logger"
)

func main() {
	conf := config.Load(logger.New(os.Getenv("LOG_LEVEL")))

	log := logger.New(conf.LogLevel)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	NewServer(conf, log).Run(ctx)
}
