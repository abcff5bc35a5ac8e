package controllers

import (
	"log/slog"
	"net/http"

	h "conduit/internal/delivery/http/helpers"
	"conduit/internal/domain"
)

// CreateInvitationRequest is the request body for POST /invitations.
type CreateInvitationRequest struct {
	EventID   string  `json:"event_id" validate:"required,uuid"`
	InviteeID string  `json:"invitee_id" validate:"required,uuid"`
	Message   *string `json:"message" validate:"omitempty,max=500"`
}

// RespondInvitationRequest is the request body for POST /invitations/{invitationID}/respond.
type RespondInvitationRequest struct {
	Response domain.InvitationStatus `json:"response" validate:"required,oneof=accepted declined"`
}

// InvitationSuccessResponse is the success response envelope for single-invitation endpoints.
type InvitationSuccessResponse struct {
	Data  *domain.EventInvitation `json:"data"`
	Error *h.APIError             `json:"error"`
}

type InvitationController struct {
	Logger  *slog.Logger
	Service domain.InvitationService
}

func NewInvitationController(logger *slog.Logger, svc domain.InvitationService) *InvitationController {
	return &InvitationController{
		Logger:  logger,
		Service: svc,
	}
}

// Invite godoc
// @Summary Invite a user to an event
// @Description The inviter must be an active member. The invitee is emailed when email is configured.
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateInvitationRequest true "Invitation"
// @Success 201 {object} controllers.InvitationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /invitations [post]
func (c *InvitationController) Invite(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req CreateInvitationRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	inv := &domain.EventInvitation{
		EventID:   req.EventID,
		InviterID: userID,
		InviteeID: req.InviteeID,
		Message:   req.Message,
	}
	if err := c.Service.Invite(r.Context(), inv); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, inv)
}

// ListEventInvitations godoc
// @Summary Invitations of an event
// @Description Visible to active members of the event.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=[]domain.EventInvitation}
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /invitations/event/{eventID} [get]
func (c *InvitationController) ListEventInvitations(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	list, err := c.Service.ListEventInvitations(r.Context(), userID, eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, list)
}

// ListMyInvitations godoc
// @Summary My pending invitations
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse{data=[]domain.EventInvitation}
// @Router /invitations/mine [get]
func (c *InvitationController) ListMyInvitations(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListMyInvitations(r.Context(), userID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, list)
}

// Respond godoc
// @Summary Respond to an invitation
// @Description Only the invitee may respond, once. Accepting joins the event.
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param invitationID path string true "Invitation ID (UUID)"
// @Param body body RespondInvitationRequest true "Response"
// @Success 200 {object} controllers.InvitationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /invitations/{invitationID}/respond [post]
func (c *InvitationController) Respond(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	invitationID, ok := h.PathUUID(w, r, "invitationID")
	if !ok {
		return
	}
	var req RespondInvitationRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	inv, err := c.Service.Respond(r.Context(), userID, invitationID, req.Response)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, inv)
}
