package controllers

import (
	"net/http"

	h "conduit/internal/delivery/http/helpers"
	"conduit/internal/delivery/http/middleware"
)

// callerID returns the authenticated user ID, or writes 401 and returns false.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}
