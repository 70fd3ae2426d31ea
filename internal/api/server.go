package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"buzzrunner/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes(rateLimiter *ratelimit.Limiter, requestsPerHour int) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	// Run-starting endpoints (rate limited)
	rateLimitedAPI := api.PathPrefix("").Subrouter()
	rateLimitedAPI.Use(RateLimitMiddleware(rateLimiter, requestsPerHour))
	rateLimitedAPI.HandleFunc("/run-bot", h.RunBot).Methods("POST", "OPTIONS")
	rateLimitedAPI.HandleFunc("/runs", h.CreateRun).Methods("POST")

	// Read/observe endpoints (not rate limited - frequent polling)
	api.HandleFunc("/runs", h.ListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", h.GetRun).Methods("GET")
	api.HandleFunc("/runs/{id}", h.CancelRun).Methods("DELETE")
	api.HandleFunc("/runs/{id}/ws", h.StreamRunLogs).Methods("GET")
	api.HandleFunc("/health", h.Health).Methods("GET")

	// CORS middleware
	r.Use(corsMiddleware)

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Client-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
