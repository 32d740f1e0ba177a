package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atelierhq/atelier-api/internal/api"
	apimiddleware "github.com/atelierhq/atelier-api/internal/api/middleware"
)

// setupRouter configures the chi router with all API routes and middleware.
func setupRouter(app *application) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))

	generationHandler := api.NewGenerationHandler(app.generationService, app.artifacts)
	characterHandler := api.NewCharacterHandler(app.characterService)
	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		if app.jwtService != nil {
			authHandler := api.NewAuthHandler(
				app.jwtService,
				app.passwordVerifier,
				app.config.Auth.AccessPasswordHash,
				time.Duration(app.config.Auth.TokenLifetimeMinutes)*time.Minute,
			)
			r.Post("/auth/token", authHandler.Token)
		}

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/generations", generationHandler.Submit)
			r.Get("/generations", generationHandler.List)
			r.Get("/generations/{id}", generationHandler.Get)
			r.Get("/generations/{id}/artifact", generationHandler.DownloadArtifact)

			r.Post("/characters", characterHandler.Create)
			r.Get("/characters", characterHandler.List)
			r.Get("/characters/{id}", characterHandler.Get)
			r.Delete("/characters/{id}", characterHandler.Delete)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
