package controllers

import (
	"log/slog"
	"net/http"

	h "conduit/internal/delivery/http/helpers"
	"conduit/internal/domain"
)

// RegisterTokenRequest is the request body for POST /notifications/register-token.
type RegisterTokenRequest struct {
	Token      string            `json:"token" validate:"required,max=4096"`
	DeviceType domain.DeviceType `json:"device_type" validate:"required,oneof=ios android web"`
	DeviceName *string           `json:"device_name" validate:"omitempty,max=100"`
}

// UnregisterTokenRequest is the request body for DELETE /notifications/register-token.
type UnregisterTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type NotificationController struct {
	Logger  *slog.Logger
	Service domain.NotificationService
}

func NewNotificationController(logger *slog.Logger, svc domain.NotificationService) *NotificationController {
	return &NotificationController{
		Logger:  logger,
		Service: svc,
	}
}

// RegisterToken godoc
// @Summary Register a device token
// @Description Upserts by token. Registering a token held by another account moves it to the caller.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RegisterTokenRequest true "Device token"
// @Success 200 {object} helpers.APIResponse{data=domain.DeviceToken}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /notifications/register-token [post]
func (c *NotificationController) RegisterToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req RegisterTokenRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	tok := &domain.DeviceToken{
		UserID:     userID,
		Token:      req.Token,
		DeviceType: req.DeviceType,
		DeviceName: req.DeviceName,
	}
	if err := c.Service.RegisterToken(r.Context(), tok); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, tok)
}

// UnregisterToken godoc
// @Summary Unregister a device token
// @Description Also served as POST /notifications/unregister-token.
// @Tags notifications
// @Accept json
// @Security BearerAuth
// @Param body body UnregisterTokenRequest true "Device token"
// @Success 204
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /notifications/register-token [delete]
// @Router /notifications/unregister-token [post]
func (c *NotificationController) UnregisterToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req UnregisterTokenRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.UnregisterToken(r.Context(), userID, req.Token); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendTest godoc
// @Summary Send a test notification
// @Description Pushes a test notification to every active device of the caller.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse{data=domain.DispatchResult}
// @Failure 404 {object} helpers.APIResponse "error.code: no_device_tokens"
// @Failure 502 {object} helpers.APIResponse "error.code: provider_rejected"
// @Failure 503 {object} helpers.APIResponse "error.code: push_not_configured"
// @Router /notifications/test [get]
func (c *NotificationController) SendTest(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	res, err := c.Service.SendTest(r.Context(), userID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, res)
}
