package handler

import (
	"log/slog"
	"net/http"

	"github.com/omnicore/omniaudit/internal/service"
)

// TaskHandler serves tasks and natural-language automation queries
type TaskHandler struct {
	tasks      *service.TaskService
	automation *service.AutomationService
	logger     *slog.Logger
}

// NewTaskHandler creates a task handler
func NewTaskHandler(tasks *service.TaskService, automation *service.AutomationService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{tasks: tasks, automation: automation, logger: logger}
}

// Create handles POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var in service.TaskInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, h.logger, err)
		return
	}

	task, err := h.tasks.Create(r.Context(), caller, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// List handles GET /api/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	tasks, err := h.tasks.List(r.Context(), caller)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Query handles POST /api/automation/nlp-query
func (h *TaskHandler) Query(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var in service.NLPInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, h.logger, err)
		return
	}

	result, err := h.automation.Query(r.Context(), caller, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
