/**
 * @description
 * This file sets up the HTTP router for the credit-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CreditRoutes creates and returns a new router for the credit service.
func CreditRoutes(h *CreditHandlers, jwksURL string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		r.Post("/loans/{loanId}/request", h.RequestReportHandler)
		r.Get("/loans/{loanId}/reports", h.ListLoanReportsHandler)

		r.Get("/reports/{reportId}", h.GetReportHandler)
		r.Post("/reports/{reportId}/reissue", h.ReissueReportHandler)

		r.Get("/logs", h.ListPullLogsHandler)
		r.Post("/expired/purge", h.PurgeExpiredHandler)
	})

	return r
}
