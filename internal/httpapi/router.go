package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"climate-server/internal/config"
	"climate-server/internal/utils"
)

const (
	notFoundMessage         = "404 Not Found: The requested URL was not found on the server. If you entered the URL manually please check your spelling and try again."
	methodNotAllowedMessage = "405 Method Not Allowed: The method is not allowed for the requested URL."
	rateLimitedMessage      = "429 Too Many Requests: Rate limit exceeded."
)

// NewRouter builds the root router with the middleware chain, /healthz,
// /metrics and JSON 404/405 handlers. Feature routes are mounted by the
// caller.
func NewRouter(cfg config.Config, db *sql.DB) chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	if cfg.MetricsEnabled {
		r.Use(metricsRecorder)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.GetHead)

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}
	if cfg.RateLimitRequests > 0 {
		r.Use(httprate.Limit(
			cfg.RateLimitRequests,
			cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				utils.WriteErrorMessage(w, http.StatusTooManyRequests, rateLimitedMessage)
			}),
		))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorMessage(w, http.StatusNotFound, notFoundMessage)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorMessage(w, http.StatusMethodNotAllowed, methodNotAllowedMessage)
	})

	registerHealthcheck(r, db)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
