// Package http provides HTTP routing and middleware configuration
// for the CoupleHQ remote store.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the CoupleHQ API.
//
// Parameters:
//
//	coupleHandler   - handler for the couple document endpoints
//	realtimeHandler - handler for the websocket change feed
//	metrics         - request instrumentation and /metrics exposition; may be nil
//	logger          - structured logger for request logging middleware
//
// Routes:
//
//	POST /api/couples                       → coupleHandler.Create
//	GET  /api/couples/{coupleID}            → coupleHandler.Get
//	PUT  /api/couples/{coupleID}            → coupleHandler.Update
//	GET  /api/couples/{coupleID}/exists     → coupleHandler.Exists
//	POST /api/couples/{coupleID}/pin/verify → coupleHandler.VerifyPIN
//	PUT  /api/couples/{coupleID}/pin        → coupleHandler.SetPIN
//	GET  /api/couples/{coupleID}/subscribe  → realtimeHandler.Subscribe
//	GET  /healthz                           → liveness check
//	GET  /metrics                           → Prometheus exposition
//
// Middleware chain (applied in order):
//  1. metrics.Middleware                   - counts requests per route
//  2. WithRequestLogging(logger)           - logs incoming requests
//  3. AllowContentType("application/json") - rejects non-JSON bodies
//  4. CoupleScope                          - validates {coupleID}
func NewRouter(
	coupleHandler *CoupleHandler,
	realtimeHandler *RealtimeHandler,
	metrics Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	if metrics != nil {
		r.Use(metrics.Middleware)
	}
	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api/couples", func(r chi.Router) {
		// Only allow request bodies with Content-Type: application/json
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Post("/", coupleHandler.Create)

		r.Route("/{"+middleware.CoupleIDParam+"}", func(r chi.Router) {
			r.Use(middleware.CoupleScope)

			r.Get("/", coupleHandler.Get)
			r.Put("/", coupleHandler.Update)
			r.Get("/exists", coupleHandler.Exists)
			r.Post("/pin/verify", coupleHandler.VerifyPIN)
			r.Put("/pin", coupleHandler.SetPIN)
			r.Get("/subscribe", realtimeHandler.Subscribe)
		})
	})

	return r
}

// Metrics instruments the router.
type Metrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}
