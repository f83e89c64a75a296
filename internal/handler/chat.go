package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/service"
)

// UsageReporter lists the caller's consumption of every metered feature
type UsageReporter interface {
	Usage(ctx context.Context, userID string, tier domain.Tier) ([]domain.Usage, error)
}

// ChatHandler serves chat, chat history and usage
type ChatHandler struct {
	chat   *service.ChatService
	usage  UsageReporter
	logger *slog.Logger
}

// NewChatHandler creates a chat handler
func NewChatHandler(chat *service.ChatService, usage UsageReporter, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{chat: chat, usage: usage, logger: logger}
}

// Send handles POST /api/chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var in service.ChatInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, h.logger, err)
		return
	}

	reply, err := h.chat.Send(r.Context(), caller, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// History handles GET /api/history
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	msgs, err := h.chat.History(r.Context(), caller.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// ClearHistory handles DELETE /api/history
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := h.chat.ClearHistory(r.Context(), caller.UserID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Usage handles GET /api/usage
func (h *ChatHandler) Usage(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	usage, err := h.usage.Usage(r.Context(), caller.UserID, caller.Tier)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tier":     caller.Tier,
		"features": usage,
	})
}
