package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/measure-api/internal/api"
	apiMiddleware "github.com/phrazzld/measure-api/internal/api/middleware"
	"github.com/phrazzld/measure-api/internal/service"
	"github.com/phrazzld/measure-api/internal/service/auth"
)

// routerDeps are the services the HTTP routes are served from.
type routerDeps struct {
	logger             *slog.Logger
	jwtService         auth.JWTService
	measurementService service.MeasurementService
	uploadService      service.UploadService
	uploadConfig       service.UploadConfig
}

// setupRouter creates the application router from its services.
func (app *application) setupRouter() http.Handler {
	return newRouter(routerDeps{
		logger:             app.logger,
		jwtService:         app.jwtService,
		measurementService: app.measurementService,
		uploadService:      app.uploadService,
		uploadConfig:       app.uploadConfig,
	})
}

// newRouter creates and configures the router with all routes and middleware.
func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(deps.logger))

	guestHandler := api.NewGuestHandler(deps.uploadService, deps.uploadConfig, deps.logger)
	measurementHandler := api.NewMeasurementHandler(deps.measurementService, deps.logger)
	photoHandler := api.NewPhotoHandler(deps.uploadService)
	authMiddleware := apiMiddleware.NewAuthMiddleware(deps.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Guest link endpoints (the token is the credential)
		r.Post("/guest/{token}/photos", guestHandler.UploadPhotos)
		r.Get("/guest/{token}/check", guestHandler.CheckToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/tasks/{taskID}/photos/{photoID}/measurements", measurementHandler.Submit)
			r.Post("/tasks/{taskID}/photos/{photoID}/process", photoHandler.Process)

			r.Get("/measurements/{id}", measurementHandler.Get)
			r.Put("/measurements/{id}", measurementHandler.Revise)
			r.Delete("/measurements/{id}", measurementHandler.Delete)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			deps.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
