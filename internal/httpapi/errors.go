package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	auth "github.com/justincavery/yoga-app-sub000"
	"github.com/justincavery/yoga-app-sub000/internal/errutil"
	"github.com/justincavery/yoga-app-sub000/internal/observability"
)

type errorResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	RetryAfterMinutes int    `json:"retry_after_minutes,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeServiceError maps engine errors to HTTP statuses. Anything outside
// the engine's taxonomy is a 500 and gets reported to Sentry.
func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var locked *auth.AccountLockedError
	if errors.As(err, &locked) {
		w.Header().Set("Retry-After", strconv.Itoa(locked.RetryAfterMinutes*60))
		writeJSON(w, http.StatusLocked, errorResponse{
			Error:             err.Error(),
			Code:              "account_locked",
			RetryAfterMinutes: locked.RetryAfterMinutes,
		})
		return
	}

	var weak *auth.WeakPasswordError
	if errors.As(err, &weak) {
		writeError(w, http.StatusBadRequest, "weak_password", weak.Reason)
		return
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, auth.ErrPasswordReuse):
		writeError(w, http.StatusBadRequest, "password_reuse", err.Error())
	case errors.Is(err, auth.ErrExpiredToken):
		writeError(w, http.StatusGone, "expired_token", "token expired")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "invalid_token", "invalid token")
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", "email already registered")
	case errors.Is(err, auth.ErrInactiveAccount):
		writeError(w, http.StatusForbidden, "account_inactive", "account inactive")
	case errors.Is(err, auth.ErrEmailNotVerified):
		writeError(w, http.StatusForbidden, "email_not_verified", "email not verified")
	case errors.Is(err, auth.ErrEngineNotReady):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "service unavailable")
	default:
		errutil.LogError(h.logger.With(slog.String("path", r.URL.Path)), "request failed", err)
		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
