package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zombar/creepyparser/internal/models"
	"github.com/zombar/creepyparser/pkg/logging"
	"github.com/zombar/creepyparser/pkg/tracing"
)

// MaxRequestBytes caps the analyze request body
const MaxRequestBytes = 1 << 20

// Engine runs one analysis
type Engine interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisReport, error)
}

// Handler handles HTTP requests
type Handler struct {
	engine   Engine
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	now      func() time.Time
	mux      *http.ServeMux
}

// NewHandler creates the API handler with CORS support. A nil gatherer
// serves the default Prometheus registry.
func NewHandler(engine Engine, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	h := newHandler(engine, gatherer, logger)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(h.mux)
}

func newHandler(engine Engine, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		engine:   engine,
		gatherer: gatherer,
		logger:   logger,
		now:      time.Now,
		mux:      http.NewServeMux(),
	}
	h.setupRoutes()
	return h
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	h.mux.HandleFunc("/analyze", h.handleAnalyze)
	h.mux.HandleFunc("/api/analyze", h.handleAnalyze)
	h.mux.HandleFunc("/health", h.handleHealth)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "ok",
		"time":   h.now().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleAnalyze runs the analysis synchronously and returns the report envelope
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.AnalysisRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.Int("text.length", len(req.Text)),
		attribute.Bool("request.has_url", req.URL != ""))

	report, err := h.engine.Analyze(r.Context(), req)
	if err != nil {
		status, detail := errorStatus(err)
		logging.HTTPErrorLogger(h.logger, status, err, r)
		respondError(w, detail, status)
		return
	}

	requestID := logging.RequestIDFromContext(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}
	respondJSON(w, models.NewEnvelope(report, requestID, h.now()), http.StatusOK)
}

// errorStatus maps an engine error to a status code and client-facing detail
func errorStatus(err error) (int, string) {
	if errors.Is(err, models.ErrInvalidInput) {
		return http.StatusBadRequest, invalidDetail(err)
	}

	var re *models.RetrievalError
	if errors.As(err, &re) {
		switch re.Kind {
		case models.RetrievalNotFound:
			return http.StatusNotFound, re.Detail()
		case models.RetrievalBlocked:
			return http.StatusServiceUnavailable, re.Detail()
		case models.RetrievalMalformed:
			return http.StatusBadGateway, re.Detail()
		case models.RetrievalCancelled:
			return http.StatusRequestTimeout, re.Detail()
		default:
			return http.StatusGatewayTimeout, re.Detail()
		}
	}
	return http.StatusInternalServerError, "Internal error while analyzing the story."
}

// invalidDetail strips the sentinel prefix added by models.InvalidInputf
func invalidDetail(err error) string {
	return strings.TrimPrefix(err.Error(), models.ErrInvalidInput.Error()+": ")
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, models.ErrorResponse{Detail: message}, statusCode)
}
