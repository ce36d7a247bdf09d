// Package server exposes a block cache and an artifact store over HTTP.
//
//	GET    /v1/blocks/{key}        value bytes, 404 on miss
//	HEAD   /v1/blocks/{key}        200 if cached, 404 otherwise
//	PUT    /v1/blocks/{key}        store the request body
//	DELETE /v1/blocks/{key}        remove the value
//	GET    /v1/artifacts/{key}     framed artifact, read through the origin
//	GET    /v1/artifacts/{key}/content  decoded artifact content
//	POST   /v1/artifacts?encoding= store content, returns its key
//	GET    /v1/stats               occupancy as JSON
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/blockcache"
	"github.com/hupe1980/blockcache/artifact"
)

// Server routes HTTP requests to a cache.
type Server struct {
	cache     *blockcache.Cache
	artifacts *artifact.Store
	logger    *blockcache.Logger
	router    chi.Router
}

// New creates a Server. artifacts may be nil to disable the artifact routes.
// metrics, if not nil, is mounted at /metrics.
func New(cache *blockcache.Cache, artifacts *artifact.Store, logger *blockcache.Logger, metrics http.Handler) *Server {
	if logger == nil {
		logger = blockcache.NoopLogger()
	}
	s := &Server{
		cache:     cache,
		artifacts: artifacts,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/blocks/{key}", s.getBlock)
		r.Head("/blocks/{key}", s.headBlock)
		r.Put("/blocks/{key}", s.putBlock)
		r.Delete("/blocks/{key}", s.deleteBlock)
		r.Get("/stats", s.stats)
		if artifacts != nil {
			r.Post("/artifacts", s.postArtifact)
			r.Get("/artifacts/{key}", s.getArtifact)
			r.Get("/artifacts/{key}/content", s.getArtifactContent)
		}
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.DebugContext(r.Context(), "request completed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) getBlock(w http.ResponseWriter, r *http.Request) {
	h, ok := s.cache.Get(chi.URLParam(r, "key"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	defer h.Release()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(h.Len()))
	if _, err := h.WriteTo(w); err != nil {
		s.logger.DebugContext(r.Context(), "write response", "key", chi.URLParam(r, "key"), "error", err)
	}
}

func (s *Server) headBlock(w http.ResponseWriter, r *http.Request) {
	if !s.cache.Contains(chi.URLParam(r, "key")) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := int64(s.cache.MaxValueSize())
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("value exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func (s *Server) putBlock(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if !s.cache.Add(chi.URLParam(r, "key"), body) {
		http.Error(w, "value not cached", http.StatusInsufficientStorage)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if s.cache.Delete(key) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if s.cache.Contains(key) {
		http.Error(w, "value in use", http.StatusConflict)
		return
	}
	http.NotFound(w, r)
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) artifactKey(w http.ResponseWriter, r *http.Request) (artifact.Key, bool) {
	k, err := artifact.ParseKey(chi.URLParam(r, "key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return k, false
	}
	return k, true
}

func (s *Server) artifactError(w http.ResponseWriter, r *http.Request, k artifact.Key, err error) {
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, artifact.ErrTooLarge):
		http.Error(w, err.Error(), http.StatusInsufficientStorage)
	default:
		s.logger.ErrorContext(r.Context(), "artifact request failed", "key", k.String(), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) getArtifact(w http.ResponseWriter, r *http.Request) {
	k, ok := s.artifactKey(w, r)
	if !ok {
		return
	}
	h, err := s.artifacts.Open(r.Context(), k)
	if err != nil {
		s.artifactError(w, r, k, err)
		return
	}
	defer h.Release()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(h.Len()))
	if _, err := h.WriteTo(w); err != nil {
		s.logger.DebugContext(r.Context(), "write response", "key", k.String(), "error", err)
	}
}

func (s *Server) getArtifactContent(w http.ResponseWriter, r *http.Request) {
	k, ok := s.artifactKey(w, r)
	if !ok {
		return
	}
	content, err := s.artifacts.Content(r.Context(), k)
	if err != nil {
		s.artifactError(w, r, k, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	_, _ = w.Write(content)
}

type putArtifactResponse struct {
	Hash string `json:"hash"`
	Key  string `json:"key"`
}

func (s *Server) postArtifact(w http.ResponseWriter, r *http.Request) {
	enc := artifact.Raw
	if v := r.URL.Query().Get("encoding"); v != "" {
		var err error
		if enc, err = artifact.ParseEncoding(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h, err := s.artifacts.Put(r.Context(), content, enc)
	k := artifact.Key{Encoding: enc, Hash: h}
	if err != nil {
		s.artifactError(w, r, k, err)
		return
	}
	writeJSON(w, http.StatusCreated, putArtifactResponse{Hash: h.String(), Key: k.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
