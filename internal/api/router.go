package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Laimiu-debug/quantscan/internal/api/handlers"
	"github.com/Laimiu-debug/quantscan/pkg/config"
	"github.com/Laimiu-debug/quantscan/pkg/logger"
	"github.com/Laimiu-debug/quantscan/pkg/metrics"
	"github.com/Laimiu-debug/quantscan/pkg/redis"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(
	backtestHandler *handlers.BacktestHandler,
	matrixHandler *handlers.MatrixHandler,
	poolHandler *handlers.PoolHandler,
	rds *redis.Client,
	cfg *config.Config,
	reg *metrics.Registry,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(rds)).Methods("GET")

	if cfg.MetricsEnabled && reg != nil {
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg.Registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Backtest endpoints
	api.HandleFunc("/backtest/run", backtestHandler.Run).Methods("POST")

	// Matrix endpoints
	api.HandleFunc("/matrix/build", matrixHandler.Build).Methods("POST")
	api.HandleFunc("/matrix/cache", matrixHandler.ClearCache).Methods("DELETE")

	// Daily pool endpoints
	api.HandleFunc("/pool/refresh", poolHandler.Refresh).Methods("POST")
	api.HandleFunc("/pool/{date}", poolHandler.Get).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status including the pool
// cache state.
func healthCheckHandler(rds *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		poolCache := "disabled"
		if rds != nil && rds.Enabled() {
			poolCache = "ok"
			if err := rds.Ping(r.Context()); err != nil {
				poolCache = "down"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "ok",
			"service":    "quantscan-api",
			"pool_cache": poolCache,
		})
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
