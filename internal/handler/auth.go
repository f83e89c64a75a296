package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/omnicore/omniaudit/internal/compliance"
	"github.com/omnicore/omniaudit/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	audit       *compliance.Logger
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, audit *compliance.Logger, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		audit:       audit,
		logger:      logger,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProfileResponse is the authenticated user's public profile
type ProfileResponse struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Tier      string    `json:"tier"`
	CreatedAt time.Time `json:"createdAt"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		h.audit.LogAuth(r.Context(), "", "register", compliance.StatusFailure, err.Error())
		writeServiceError(w, h.logger, err)
		return
	}

	h.audit.LogAuth(r.Context(), result.UserID, "register", compliance.StatusSuccess, "")
	writeJSON(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		status := compliance.StatusFailure
		if errors.Is(err, service.ErrInvalidCredentials) {
			status = compliance.StatusDenied
		}
		h.audit.LogAuth(r.Context(), "", "login", status, "username="+req.Username)
		writeServiceError(w, h.logger, err)
		return
	}

	h.audit.LogAuth(r.Context(), result.UserID, "login", compliance.StatusSuccess, "")
	writeJSON(w, http.StatusOK, result)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	user, err := h.authService.Profile(r.Context(), caller.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Tier:      string(user.Tier),
		CreatedAt: user.CreatedAt,
	})
}
