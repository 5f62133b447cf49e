/**
 * @description
 * This file sets up the HTTP router for the mass-payout service. It defines
 * the API endpoints, associates them with their corresponding handlers, and
 * applies any necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for browser-facing dashboards.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// PayoutRoutes creates and returns a new router for the mass-payout service.
func PayoutRoutes(h *PayoutHandlers, serviceJWTSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(ServiceAuthMiddleware(serviceJWTSecret))

		// Asset onboarding and mirror reads
		r.Post("/assets/import", h.ImportAssetHandler)
		r.Get("/assets", h.ListAssetsHandler)
		r.Get("/assets/{assetID}", h.GetAssetHandler)

		// Distribution creation per asset
		r.Post("/assets/{assetID}/payouts", h.CreatePayoutHandler)
		r.Post("/assets/{assetID}/corporate-actions", h.CreateCorporateActionHandler)

		// Distribution lifecycle and history
		r.Get("/distributions", h.ListDistributionsHandler)
		r.Get("/distributions/{distributionID}", h.GetDistributionHandler)
		r.Post("/distributions/{distributionID}/cancel", h.CancelDistributionHandler)
	})

	return r
}
