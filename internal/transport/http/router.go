// Package httptransport assembles the HTTP surface: shared middleware, domain
// routes and operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	bridgeHandler "agencyops/internal/bridge/handler"
	contactHandler "agencyops/internal/contact/handler"
	contractHandler "agencyops/internal/contract/handler"
	"agencyops/internal/platform/metrics"
	"agencyops/internal/platform/middleware"
	rtwHandler "agencyops/internal/rtw/handler"
	timesheetHandler "agencyops/internal/timesheet/handler"
	verificationHandler "agencyops/internal/verification/handler"
	"agencyops/pkg/platform/httputil"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handlers groups the domain handlers mounted on the router. Nil handlers
// are skipped.
type Handlers struct {
	Contacts     *contactHandler.Handler
	Verification *verificationHandler.Handler
	Contracts    *contractHandler.Handler
	Rtw          *rtwHandler.Handler
	Timesheets   *timesheetHandler.Handler
	Bridge       *bridgeHandler.Handler
}

type Options struct {
	APIKey         string
	RequestTimeout time.Duration
	Health         map[string]HealthCheck
}

// NewRouter wires middleware and routes. CORS preflights are answered before
// routing and any other OPTIONS request gets an empty 204.
func NewRouter(logger *slog.Logger, opts Options, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(answerOptions)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	r.MethodNotAllowed(middleware.MethodNotAllowed)
	r.NotFound(middleware.NotFound)

	r.Get("/health", healthHandler(opts.Health))
	r.Handle("/metrics", metrics.Handler())

	requireKey := middleware.RequireAPIKey(opts.APIKey, logger)
	if h.Contacts != nil {
		h.Contacts.Register(r, requireKey)
	}
	if h.Verification != nil {
		h.Verification.Register(r)
	}
	if h.Contracts != nil {
		h.Contracts.Register(r, requireKey)
	}
	if h.Rtw != nil {
		h.Rtw.Register(r, requireKey)
	}
	if h.Timesheets != nil {
		h.Timesheets.Register(r, requireKey)
	}
	if h.Bridge != nil {
		h.Bridge.Register(r)
	}

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         600,
	}).Handler(r)
}

func answerOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = "unavailable"
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": results,
		})
	}
}
