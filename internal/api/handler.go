package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirychukyurii/hostdesk/internal/service"
)

// OperatorHeader carries the identity recorded on change records
const OperatorHeader = "X-Operator"

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Handler holds the HTTP handlers and dependencies
type Handler struct {
	service        service.InventoryService
	logger         *slog.Logger
	basePath       string
	requestTimeout time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(service service.InventoryService, basePath string, requestTimeout time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		service:        service,
		logger:         logger,
		basePath:       basePath,
		requestTimeout: requestTimeout,
	}
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.loggingMiddleware)
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)
	if h.requestTimeout > 0 {
		r.Use(middleware.Timeout(h.requestTimeout))
	}
	r.Use(operatorMiddleware)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	// Create routes handler
	routesHandler := h.createRoutes()

	// If base path is configured, mount routes on that path
	if h.basePath != "" {
		r.Mount(h.basePath, routesHandler)
	} else {
		r.Mount("/", routesHandler)
	}

	return r
}

// createRoutes creates the API routes
func (h *Handler) createRoutes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard/stats", h.GetDashboardStats)

		// Host routes
		r.Get("/hosts", h.ListHosts)
		r.Post("/hosts", h.AddHost)
		r.Get("/hosts/export", h.ExportHosts)
		r.Get("/hosts/{ip}", h.GetHost)
		r.Patch("/hosts/{ip}", h.UpdateHost)
		r.Delete("/hosts/{ip}", h.DeleteHost)
		r.Post("/hosts/{ip}/restore", h.RestoreHostStatus)

		// Public pool routes
		r.Get("/pool/hosts", h.ListPool)
		r.Post("/pool/hosts/{ip}/apply", h.ApplyFromPool)

		// Record routes
		r.Get("/inefficiencies", h.ListInefficiencies)
		r.Get("/metrics/hosts", h.ListMetrics)
		r.Get("/channels", h.ListChannelSummaries)
		r.Get("/channels/{id}/details", h.GetChannelDetails)
		r.Get("/channel-details", h.ListChannelDetails)
		r.Get("/changes", h.ListChanges)

		r.Post("/inventory/sync", h.SyncInventory)
	})

	return r
}

// Healthz handles GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse represents an error response
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respondJSON writes a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response",
			slog.String("error", err.Error()),
		)
	}
}

// respondError maps a service error onto its HTTP status and writes it
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respondJSON(w, http.StatusBadRequest, errorResponse{Error: service.ErrValidation.Error(), Fields: verr.Fields})
	case errors.Is(err, service.ErrValidation):
		h.respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		h.respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrConflict):
		h.respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrTransient):
		h.logger.Error("store unavailable",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		h.respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: service.ErrTransient.Error()})
	default:
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		h.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeJSON reads a JSON request body into dst, rejecting unknown fields
func decodeJSON(r *http.Request, w http.ResponseWriter, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return service.NewValidationError("body", err.Error())
	}
	return nil
}
