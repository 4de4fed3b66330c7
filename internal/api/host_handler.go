package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirychukyurii/hostdesk/internal/export"
	"github.com/kirychukyurii/hostdesk/internal/model"
)

// ListHosts handles GET /api/hosts
func (h *Handler) ListHosts(w http.ResponseWriter, r *http.Request) {
	q, err := parseHostQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.QueryHosts(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, page)
}

// ExportHosts handles GET /api/hosts/export
func (h *Handler) ExportHosts(w http.ResponseWriter, r *http.Request) {
	q, err := parseHostQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	hosts, err := h.service.ExportHosts(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=hosts.xlsx")
	if err := export.WriteHosts(w, hosts); err != nil {
		h.logger.Error("failed to write host export",
			slog.String("error", err.Error()),
		)
	}
}

// GetHost handles GET /api/hosts/{ip}
func (h *Handler) GetHost(w http.ResponseWriter, r *http.Request) {
	host, err := h.service.GetHost(r.Context(), chi.URLParam(r, "ip"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, host)
}

// AddHost handles POST /api/hosts
func (h *Handler) AddHost(w http.ResponseWriter, r *http.Request) {
	var req model.NewHost
	if err := decodeJSON(r, w, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	host, err := h.service.AddHost(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, host)
}

// UpdateHost handles PATCH /api/hosts/{ip}
func (h *Handler) UpdateHost(w http.ResponseWriter, r *http.Request) {
	var patch model.HostPatch
	if err := decodeJSON(r, w, &patch); err != nil {
		h.respondError(w, r, err)
		return
	}

	host, err := h.service.UpdateHost(r.Context(), chi.URLParam(r, "ip"), patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, host)
}

// DeleteHost handles DELETE /api/hosts/{ip}
func (h *Handler) DeleteHost(w http.ResponseWriter, r *http.Request) {
	host, err := h.service.DeleteHost(r.Context(), chi.URLParam(r, "ip"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, host)
}

// RestoreHostStatus handles POST /api/hosts/{ip}/restore
func (h *Handler) RestoreHostStatus(w http.ResponseWriter, r *http.Request) {
	host, err := h.service.RestoreHostStatus(r.Context(), chi.URLParam(r, "ip"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, host)
}

// ListPool handles GET /api/pool/hosts
func (h *Handler) ListPool(w http.ResponseWriter, r *http.Request) {
	q, err := parsePoolQuery(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.QueryPool(r.Context(), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, page)
}

// ApplyFromPool handles POST /api/pool/hosts/{ip}/apply
func (h *Handler) ApplyFromPool(w http.ResponseWriter, r *http.Request) {
	var req model.PoolApplication
	if err := decodeJSON(r, w, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	host, err := h.service.ApplyFromPool(r.Context(), chi.URLParam(r, "ip"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, host)
}
