package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/atelierhq/atelier-api/internal/artifact"
	"github.com/atelierhq/atelier-api/internal/config"
	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/pipeline"
	"github.com/atelierhq/atelier-api/internal/platform/gemini"
	"github.com/atelierhq/atelier-api/internal/platform/jsonfile"
	"github.com/atelierhq/atelier-api/internal/platform/postgres"
	"github.com/atelierhq/atelier-api/internal/scheduler"
	"github.com/atelierhq/atelier-api/internal/service"
	"github.com/atelierhq/atelier-api/internal/service/auth"
	"github.com/atelierhq/atelier-api/internal/store"
)

// application holds the assembled dependency graph of the server.
type application struct {
	config *config.Config
	logger *slog.Logger

	db         *sql.DB
	jobs       *store.JobStore
	characters store.CharacterStore
	scheduler  *scheduler.Scheduler
	artifacts  *artifact.Writer

	generationService *service.GenerationService
	characterService  *service.CharacterService
	jwtService        auth.JWTService
	passwordVerifier  auth.PasswordVerifier
}

// newApplication wires all components from the configuration.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	defaults := domain.Settings{
		GuidanceScale: cfg.Generation.GuidanceScale,
		Steps:         cfg.Generation.Steps,
	}
	app.jobs = store.NewJobStore(defaults, cfg.Generation.RetentionLimit, logger)

	// The character store backend is selected by configuration: Postgres
	// when a database URL is set, a single JSON file otherwise.
	if cfg.Database.URL != "" {
		db, err := openDatabase(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, err
		}
		if err := runMigrations(db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.db = db
		app.characters = postgres.NewCharacterStore(db, logger)
	} else {
		characters, err := jsonfile.NewCharacterStore(cfg.Database.CharactersFile, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open characters file: %w", err)
		}
		app.characters = characters
	}

	enhancer, err := gemini.NewEnhancer(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create enhancer: %w", err)
	}
	backend, err := gemini.NewImagenBackend(ctx, logger, cfg.LLM, cfg.Generation.NegativePrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to create image backend: %w", err)
	}

	app.artifacts, err = artifact.NewWriter(cfg.Generation.OutputDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact writer: %w", err)
	}

	runner := pipeline.New(app.jobs, enhancer, backend, app.artifacts, pipeline.SeedConfig{
		Base:        cfg.Generation.BaseSeed,
		Consistency: cfg.Generation.ConsistencySeed,
	}, logger)
	app.scheduler = scheduler.New(app.jobs, runner, cfg.Generation.MaxConcurrent, logger)

	app.generationService = service.NewGenerationService(app.jobs, app.characters, app.scheduler, logger)
	app.characterService = service.NewCharacterService(app.characters, logger)

	// Authentication is optional; without a secret the API is open.
	if cfg.Auth.JWTSecret != "" {
		app.jwtService, err = auth.NewJWTService(cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT service: %w", err)
		}
		app.passwordVerifier = auth.NewBcryptVerifier()
	} else {
		logger.Warn("no JWT secret configured, authentication is disabled")
	}

	return app, nil
}

// openDatabase opens and verifies the Postgres connection pool.
func openDatabase(ctx context.Context, url string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")
	return db, nil
}

// cleanup releases application resources after the HTTP server has stopped:
// in-flight jobs are drained before the process exits.
func (app *application) cleanup() {
	app.logger.Info("draining in-flight jobs")
	app.scheduler.Drain()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
