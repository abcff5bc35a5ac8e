package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"conduit/internal/domain"
)

// WriteServiceError maps a service error to its HTTP status and error code.
// Unmapped errors are logged and reported as 500 without their message.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteJSONError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid email or password")
	case errors.Is(err, domain.ErrNoDeviceTokens):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNoDeviceTokens, "no registered device tokens")
	case errors.Is(err, domain.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrNotMember):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, domain.ErrAlreadyMember),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrDuplicateInvitation),
		errors.Is(err, domain.ErrInvitationResponded),
		errors.Is(err, domain.ErrCallEnded),
		errors.Is(err, domain.ErrCreatorCannotLeave):
		WriteJSONError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, domain.ErrPushNotConfigured):
		WriteJSONError(w, http.StatusServiceUnavailable, ErrCodePushNotConfigured, "push notifications are not configured")
	case errors.Is(err, domain.ErrProviderRejected):
		WriteJSONError(w, http.StatusBadGateway, ErrCodeProviderRejected, "push provider rejected the notification")
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
