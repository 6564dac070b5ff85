package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phuslu/log"

	"github.com/MalithGihan/extract-service/internal/ingest"
	"github.com/MalithGihan/extract-service/pkg/types"
)

// Extractor is the single-document pipeline the handlers fan out to.
type Extractor interface {
	Extract(ctx context.Context, up ingest.Upload) (*types.ExtractionResult, error)
}

// Metadata describes the service on GET /v1/metadata.
type Metadata struct {
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Version             string   `json:"version"`
	Engine              string   `json:"engine"`
	SupportedExtensions []string `json:"supported_extensions"`
}

type Handler struct {
	pipe           Extractor
	meta           Metadata
	maxUploadBytes int64
	logger         *log.Logger
}

func New(pipe Extractor, meta Metadata, maxUploadBytes int64, logger *log.Logger) *Handler {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	if meta.SupportedExtensions == nil {
		meta.SupportedExtensions = ingest.SupportedExtensions()
	}
	return &Handler{pipe: pipe, meta: meta, maxUploadBytes: maxUploadBytes, logger: logger}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/v1/metadata", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, h.meta)
	})
	r.Post("/v1/extract", h.extract)
	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
