package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"schedics/internal/cli"
)

func main() {
	// Root context canceled on SIGINT/SIGTERM so `serve` shuts down
	// gracefully and one-shot commands abort their network calls.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := cli.ExecuteContext(ctx)
	os.Exit(code)
}
