package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ibeckermayer/autobip/internal/bootstrap"
)

func main() {
	if err := run(); err != nil {
		slog.Error("autobip stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap.Open(ctx, "")
	if err != nil {
		return err
	}
	defer env.Close()

	slog.Info("autobip starting...")
	return env.Serve(ctx)
}
