package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/scmdesk/scmdesk/cmd/scmctl/cli"
	"github.com/scmdesk/scmdesk/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	c := cli.NewJobsCLI(cfg.RedisAddr, os.Stdout, os.Stderr)
	code := c.Run(ctx, os.Args[1:])
	if err := c.Close(); err != nil {
		slog.Default().Warn("close queue clients", slog.Any("error", err))
	}
	stop()
	os.Exit(code)
}
