package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/omnicore/omniaudit/internal/demo"
)

// DemoHandler serves seeded sample data and the ROI calculator
type DemoHandler struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewDemoHandler creates a demo handler
func NewDemoHandler(logger *slog.Logger) *DemoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DemoHandler{logger: logger, now: time.Now}
}

// Community handles GET /api/demo/community?seed=&count=&q=
func (h *DemoHandler) Community(w http.ResponseWriter, r *http.Request) {
	seed, count, err := seedAndSize(r, "count")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	c := demo.GenerateCommunity(seed, count, h.now())
	if q := r.URL.Query().Get("q"); q != "" {
		c.Posts = c.Search(q)
	}
	writeJSON(w, http.StatusOK, c)
}

// Metrics handles GET /api/demo/metrics?seed=&days=
func (h *DemoHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	seed, days, err := seedAndSize(r, "days")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, demo.GenerateMetrics(seed, days, h.now()))
}

// ROI handles POST /api/demo/roi
func (h *DemoHandler) ROI(w http.ResponseWriter, r *http.Request) {
	var in demo.ROIInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	result, err := demo.CalculateROI(in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// seedAndSize reads the seed plus one size parameter; zero values pick defaults
func seedAndSize(r *http.Request, sizeKey string) (uint64, int, error) {
	var seed uint64
	if v := r.URL.Query().Get("seed"); v != "" {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: seed must be a non-negative integer", demo.ErrInvalidInput)
		}
		seed = s
	}
	size, err := queryInt(r, sizeKey, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s must be an integer", demo.ErrInvalidInput, sizeKey)
	}
	return demo.Seed(seed), size, nil
}
