package handler

import (
	"log/slog"
	"net/http"

	"github.com/omnicore/omniaudit/internal/catalog"
	"github.com/omnicore/omniaudit/internal/service"
)

// CatalogHandler serves templates, industries and form field help
type CatalogHandler struct {
	catalog  *catalog.Catalog
	tooltips *service.TooltipService
	logger   *slog.Logger
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(c *catalog.Catalog, tooltips *service.TooltipService, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{catalog: c, tooltips: tooltips, logger: logger}
}

// Templates handles GET /api/templates
func (h *CatalogHandler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Templates())
}

// Template handles GET /api/templates/{id}
func (h *CatalogHandler) Template(w http.ResponseWriter, r *http.Request) {
	t, ok := h.catalog.Template(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ByIndustry handles GET /api/templates/industry/{industry}
func (h *CatalogHandler) ByIndustry(w http.ResponseWriter, r *http.Request) {
	ts, ok := h.catalog.ByIndustry(r.PathValue("industry"))
	if !ok {
		writeError(w, http.StatusNotFound, "industry not found")
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

// Industries handles GET /api/industries
func (h *CatalogHandler) Industries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Industries())
}

// Tooltips handles GET /api/tooltips
func (h *CatalogHandler) Tooltips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tooltips.All())
}

// Tooltip handles GET /api/tooltips/{field}
func (h *CatalogHandler) Tooltip(w http.ResponseWriter, r *http.Request) {
	tip, err := h.tooltips.Get(r.Context(), r.PathValue("field"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tip)
}
