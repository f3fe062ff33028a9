// Package server exposes the minimal job API: submit, status, cancel, plus
// analysis result retrieval. Authentication, billing and sessions live in
// the surrounding application, not here.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/francis4531/Offerwise-sub000/internal/analysis"
	"github.com/francis4531/Offerwise-sub000/internal/export"
	"github.com/francis4531/Offerwise-sub000/internal/jobs"
)

// MaxUploadBytes caps a submitted document (after base64 decode).
const MaxUploadBytes = 64 << 20

type Router struct {
	mgr      *jobs.Manager
	pool     *jobs.Pool
	coord    *analysis.Coordinator
	exporter *export.Service
	logger   *slog.Logger
	tmpDir   string
}

func NewRouter(mgr *jobs.Manager, pool *jobs.Pool, coord *analysis.Coordinator, exporter *export.Service, tmpDir string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{mgr: mgr, pool: pool, coord: coord, exporter: exporter, logger: logger, tmpDir: tmpDir}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/jobs", r.handleSubmit)
		rt.Get("/jobs/{id}", r.handleStatus)
		rt.Post("/jobs/{id}/cancel", r.handleCancel)
		rt.Get("/analyses/{id}", r.handleAnalysis)
		rt.Get("/analyses/{id}/report", r.handleReport)
	})

	return mux
}

// writeJSON always emits well-formed structured output; the client polling
// loop treats anything else as a transient failure.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

type errorBody struct {
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	Error     string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Status: "ERROR", ErrorCode: code, Error: msg})
}
