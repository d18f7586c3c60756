package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/domain"
)

const maxBatchSize = 50

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the ranking engine over HTTP.
type Server struct {
	engine        domain.Engine
	defaultTopK   int
	maxTopK       int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server around a ranking engine.
func NewServer(engine domain.Engine, defaultTopK, maxTopK int, logger *zap.Logger) *Server {
	s := &Server{
		engine:      engine,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEngineNotReady, http.StatusServiceUnavailable, codeNotReady),
		sentinelHandler(domain.ErrEngineTimeout, http.StatusGatewayTimeout, codeEngineTimeout),
		sentinelHandler(domain.ErrProvider, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/v1/search", s.Search)
	r.Post("/api/v1/search/batch", s.SearchBatch)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	topK, err := s.resolveTopK(req.TopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	result, err := s.engine.Search(r.Context(), req.Query, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resultToDTO(result))
}

// SearchBatch handles POST /api/v1/search/batch.
func (s *Server) SearchBatch(w http.ResponseWriter, r *http.Request) {
	var req batchSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Queries) == 0 || len(req.Queries) > maxBatchSize {
		writeError(w, http.StatusBadRequest, codeBadRequest,
			fmt.Sprintf("queries count must be between 1 and %d", maxBatchSize))
		return
	}

	topK, err := s.resolveTopK(req.TopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	results, err := s.engine.SearchBatch(r.Context(), req.Queries, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := batchSearchResponse{Results: make([]searchResponse, len(results))}
	for i, res := range results {
		resp.Results[i] = resultToDTO(res)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK
	if !s.engine.IsReady() {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]string{"status": status})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) resolveTopK(topK *int) (int, error) {
	if topK == nil {
		return s.defaultTopK, nil
	}
	if *topK <= 0 || *topK > s.maxTopK {
		return 0, fmt.Errorf("top_k must be between 1 and %d", s.maxTopK)
	}
	return *topK, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEngineNotReady,
		domain.ErrEngineTimeout,
		domain.ErrProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
