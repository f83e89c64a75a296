package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/omnicore/omniaudit/internal/compliance"
	"github.com/omnicore/omniaudit/internal/service"
)

const (
	defaultComplianceLimit = 100
	maxComplianceLimit     = 500
)

// AdminHandler serves the admin-only dashboard, compliance trail and Notion sync
type AdminHandler struct {
	dashboard *service.DashboardService
	audit     *compliance.Logger
	notion    *service.NotionService
	logger    *slog.Logger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(dashboard *service.DashboardService, audit *compliance.Logger, notion *service.NotionService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{dashboard: dashboard, audit: audit, notion: notion, logger: logger}
}

// Dashboard handles GET /api/admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Build(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Compliance handles GET /api/admin/compliance?limit=
func (h *AdminHandler) Compliance(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultComplianceLimit)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxComplianceLimit)

	events, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// NotionSync handles POST /api/notion/sync/{id}
func (h *AdminHandler) NotionSync(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "audit id must be a positive integer")
		return
	}

	result, err := h.notion.SyncAudit(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
