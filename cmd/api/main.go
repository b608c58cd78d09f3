// Command api serves the Sub Account notes HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/subaccounts/notes-server/internal/di"
	"github.com/subaccounts/notes-server/internal/di/providers"
	"github.com/subaccounts/notes-server/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "notes server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	providers.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector := di.NewContainer()
	if err := di.Bootstrap(injector); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	log.Info("notes server running", "version", version)

	<-ctx.Done()
	stop()
	log.Info("shutting down")

	// Handles close in reverse dependency order: HTTP first, store last.
	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown incomplete", "error", err)
	}
	log.Info("notes server stopped")
	return nil
}
