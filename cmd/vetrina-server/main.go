package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vetrina-server-go/internal/bootstrap"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		app.Logger().Error("server exited: %v", err)
		os.Exit(1)
	}
}
