package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/service"
)

// AuditHandler serves the questionnaire endpoints
type AuditHandler struct {
	audits *service.AuditService
	logger *slog.Logger
}

// NewAuditHandler creates an audit handler
func NewAuditHandler(audits *service.AuditService, logger *slog.Logger) *AuditHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditHandler{audits: audits, logger: logger}
}

// Create handles POST /api/audits and returns the stored record
func (h *AuditHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form domain.AuditForm
	if err := decodeJSON(r, &form); err != nil {
		badRequest(w, h.logger, err)
		return
	}

	userID := ""
	if c, ok := callerFrom(r); ok {
		userID = c.UserID
	}

	audit, err := h.audits.Submit(r.Context(), form, userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, audit)
}

// Get handles GET /api/audits/{id}
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "audit id must be a positive integer")
		return
	}

	audit, err := h.audits.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, audit)
}

// List handles GET /api/audits
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	audits, err := h.audits.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, audits)
}
