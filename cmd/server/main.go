// Package main implements the entry point for the Atelier API server,
// which queues image generation jobs, tracks their progress, and manages
// reusable character presets.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/atelierhq/atelier-api/internal/config"
	"github.com/atelierhq/atelier-api/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

// run loads configuration, assembles the application, and serves HTTP
// until a shutdown signal arrives.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_concurrent", cfg.Generation.MaxConcurrent,
		"database_configured", cfg.Database.URL != "",
		"auth_configured", cfg.Auth.JWTSecret != "")

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	router := setupRouter(app)
	return app.startHTTPServer(ctx, router)
}
