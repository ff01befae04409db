// Command server runs the resource hub HTTP API.
//
// Configuration comes from the environment (optionally a .env file) and
// flags; see internal/config. Example:
//
//	JWT_SECRET=$(openssl rand -hex 32) BLOB_BACKEND=fs go run ./cmd/server -addr :8000
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/resource-hub/internal/config"
	"github.com/sakif/resource-hub/internal/server"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if cfg.UsingDevSecret {
		logger.Warn("JWT_SECRET not set, signing tokens with the development secret")
	}
	if cfg.MasterPass != "" {
		logger.Warn("MASTER_PASSPHRASE is set, any email can sign in with it")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	srv, err := server.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
