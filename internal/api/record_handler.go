package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetDashboardStats handles GET /api/dashboard/stats
func (h *Handler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// ListInefficiencies handles GET /api/inefficiencies
func (h *Handler) ListInefficiencies(w http.ResponseWriter, r *http.Request) {
	q, err := parseInefficiencyQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.QueryInefficiencies(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, page)
}

// ListMetrics handles GET /api/metrics/hosts
func (h *Handler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	q, err := parseMetricQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.QueryMetrics(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, page)
}

// ListChannelSummaries handles GET /api/channels
func (h *Handler) ListChannelSummaries(w http.ResponseWriter, r *http.Request) {
	q, err := parseChannelSummaryQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.QueryChannelSummaries(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, page)
}

// GetChannelDetails handles GET /api/channels/{id}/details
func (h *Handler) GetChannelDetails(w http.ResponseWriter, r *http.Request) {
	q, err := parseChannelDetailQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.GetChannelDetails(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, page)
}

// ListChannelDetails handles GET /api/channel-details
func (h *Handler) ListChannelDetails(w http.ResponseWriter, r *http.Request) {
	q, err := parseChannelDetailQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.QueryChannelDetails(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, page)
}

// ListChanges handles GET /api/changes
func (h *Handler) ListChanges(w http.ResponseWriter, r *http.Request) {
	q, err := parseChangeQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.QueryChanges(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, page)
}

// SyncInventory handles POST /api/inventory/sync
func (h *Handler) SyncInventory(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SyncInventory(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}
