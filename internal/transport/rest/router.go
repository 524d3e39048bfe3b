package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/college-erp/internal/auth"
	"github.com/frahmantamala/college-erp/internal/establishment"
	"github.com/frahmantamala/college-erp/internal/master"
	"github.com/frahmantamala/college-erp/internal/transport/middleware"
	"github.com/frahmantamala/college-erp/internal/transport/swagger"
	"github.com/frahmantamala/college-erp/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, userHandler *user.Handler, masterHandler *master.Handler, establishmentHandler *establishment.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", authHandler.Login)
				sr.Post("/verify-otp", authHandler.VerifyLoginOTP)
				sr.Post("/password-reset/request", authHandler.RequestPasswordReset)
				sr.Post("/password-reset/verify-otp", authHandler.VerifyResetOTP)
				sr.Post("/password-reset/complete", authHandler.CompleteReset)
				sr.Post("/refresh", authHandler.RefreshToken)
				sr.Post("/logout", authHandler.Logout)
			})
		}

		if authHandler != nil {
			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				// User administration
				if userHandler != nil {
					pr.Route("/users", func(ur chi.Router) {
						ur.With(authHandler.RequirePermission("users", "read")).Get("/", userHandler.ListUsers)
						ur.With(authHandler.RequirePermission("users", "read")).Get("/{id}", userHandler.GetUser)
						ur.With(authHandler.RequirePermission("users", "create")).Post("/", userHandler.CreateUser)
						ur.With(authHandler.RequirePermission("users", "update")).Patch("/{id}", userHandler.UpdateUser)
						ur.With(authHandler.RequirePermission("users", "update")).Post("/{id}/unlock", userHandler.UnlockUser)
						ur.With(authHandler.RequirePermission("users", "delete")).Delete("/{id}", userHandler.DeleteUser)
						ur.With(authHandler.RequirePermission("users", "purge")).Delete("/{id}/purge", userHandler.PurgeUser)
					})
				}

				// Master data
				if masterHandler != nil {
					pr.Route("/master", func(mr chi.Router) {
						mr.Get("/countries", masterHandler.ListCountries)
						mr.With(authHandler.RequirePermission("master", "create")).Post("/countries", masterHandler.CreateCountry)
						mr.Get("/states", masterHandler.ListStates)
						mr.With(authHandler.RequirePermission("master", "create")).Post("/states", masterHandler.CreateState)

						mr.Get("/designations", masterHandler.ListDesignations)
						mr.Get("/designations/{id}", masterHandler.GetDesignation)
						mr.With(authHandler.RequirePermission("master", "create")).Post("/designations", masterHandler.CreateDesignation)
						mr.With(authHandler.RequirePermission("master", "update")).Patch("/designations/{id}", masterHandler.UpdateDesignation)
						mr.With(authHandler.RequirePermission("master", "delete")).Delete("/designations/{id}", masterHandler.DeleteDesignation)
						mr.With(authHandler.RequirePermission("master", "purge")).Delete("/designations/{id}/purge", masterHandler.PurgeDesignation)
					})
				}

				// Establishment
				if establishmentHandler != nil {
					pr.Route("/establishment", func(er chi.Router) {
						er.With(authHandler.RequirePermission("establishment", "create")).Post("/employees", establishmentHandler.CreateEmployee)
					})
				}
			})
		}
	})
}
