package handler

import (
	"log/slog"
	"net/http"

	"github.com/omnicore/omniaudit/internal/service"
)

// EngagementHandler serves referrals and client analytics events
type EngagementHandler struct {
	referrals *service.ReferralService
	analytics *service.AnalyticsService
	logger    *slog.Logger
}

// NewEngagementHandler creates an engagement handler
func NewEngagementHandler(referrals *service.ReferralService, analytics *service.AnalyticsService, logger *slog.Logger) *EngagementHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EngagementHandler{referrals: referrals, analytics: analytics, logger: logger}
}

// ReferralCode handles POST /api/referrals/code
func (h *EngagementHandler) ReferralCode(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	code, err := h.referrals.GetOrCreateCode(r.Context(), caller.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, code)
}

// Referrals handles GET /api/referrals
func (h *EngagementHandler) Referrals(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	summary, err := h.referrals.Summary(r.Context(), caller.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// RecordEvent handles POST /api/analytics/events. Anonymous events are accepted.
func (h *EngagementHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var in service.EventInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	userID := ""
	if c, ok := callerFrom(r); ok {
		userID = c.UserID
	}

	event, err := h.analytics.Record(r.Context(), in, userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}
