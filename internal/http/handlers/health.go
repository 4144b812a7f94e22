package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterLiveness mounts the /health liveness probe on the plain router.
// It answers as soon as the process accepts connections and carries no
// dependency checks; readiness lives under /api/v1/system/health.
func RegisterLiveness(router *chi.Mux, version string) {
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
}
