package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/omnicore/omniaudit/internal/demo"
	"github.com/omnicore/omniaudit/internal/domain"
	"github.com/omnicore/omniaudit/internal/security/middleware"
	"github.com/omnicore/omniaudit/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string               `json:"error"`
	Details []service.FieldError `json:"details,omitempty"`
}

// writeJSON encodes before touching the header so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Default().Error("response encode failed", slog.String("error", err.Error()))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError maps domain and service errors to status codes. Anything
// unrecognized is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: verr.Fields})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrUsageLimit):
		writeError(w, http.StatusTooManyRequests, "usage limit reached for your tier")
	case errors.Is(err, domain.ErrInvalidReferral):
		writeError(w, http.StatusBadRequest, "invalid referral code")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrNotionUnavailable):
		writeError(w, http.StatusServiceUnavailable, "notion sync is not configured")
	case errors.Is(err, service.ErrNotionUpstream):
		writeError(w, http.StatusBadGateway, "notion request failed")
	case errors.Is(err, demo.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads one JSON object from the body
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func badRequest(w http.ResponseWriter, log *slog.Logger, err error) {
	log.Warn("failed to decode request", slog.String("error", err.Error()))
	writeError(w, http.StatusBadRequest, "invalid request body")
}

// callerFrom builds the service caller from the token claims, or reports false
func callerFrom(r *http.Request) (service.Caller, bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		return service.Caller{}, false
	}
	return service.Caller{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		Tier:     domain.Tier(claims.Tier),
	}, true
}

// requireCaller writes 401 and returns false when the request has no claims
func requireCaller(w http.ResponseWriter, r *http.Request) (service.Caller, bool) {
	c, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return c, ok
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
