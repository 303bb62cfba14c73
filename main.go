package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/markblanca/quicklink-delivery/internal/dispatch/bootstrap"
	"github.com/markblanca/quicklink-delivery/internal/shared/config"
	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() { <-quit; cancel() }()

	log := logger.NewLogger("dispatch-engine")
	bootstrap.Run(ctx, cfg, log)
}
