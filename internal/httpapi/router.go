// Package httpapi exposes dashboard metrics, uploads and maintenance over JSON.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/jask/recruitmetrics/internal/config"
	"github.com/jask/recruitmetrics/internal/service"
)

type api struct {
	svc    *service.Services
	cfg    config.Config
	logger logrus.FieldLogger
}

// NewRouter builds the HTTP handler with CORS and request logging applied.
func NewRouter(cfg config.Config, svc *service.Services, logger logrus.FieldLogger) http.Handler {
	a := &api{svc: svc, cfg: cfg, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// API routes hang off the root router so method mismatches reach
	// MethodNotAllowedHandler instead of falling through to NotFoundHandler.
	r.HandleFunc("/api/dashboard", a.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/api/summary", a.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/records/count", a.handleRecordCount).Methods(http.MethodGet)
	r.HandleFunc("/api/interviews", a.handleInterviewList).Methods(http.MethodGet)
	r.HandleFunc("/api/uploads", a.handleUploadList).Methods(http.MethodGet)
	r.HandleFunc("/api/uploads", a.handleUploadCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/uploads/{id}", a.handleUploadGet).Methods(http.MethodGet)
	r.HandleFunc("/api/uploads/{filename}", a.handleUploadDelete).Methods(http.MethodDelete)
	r.HandleFunc("/api/duplicates", a.handleDuplicates).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return loggingMiddleware(logger, c.Handler(r))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("request")
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
