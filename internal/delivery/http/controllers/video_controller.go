package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	h "conduit/internal/delivery/http/helpers"
	"conduit/internal/domain"
)

// CallRooms relays signaling between the sockets of a call.
type CallRooms interface {
	Serve(ctx context.Context, ws *websocket.Conn, callID, userID string)
	EndCall(callID, endedBy string)
}

// StartCallRequest is the request body for POST /video/calls.
type StartCallRequest struct {
	EventID      *string  `json:"event_id" validate:"omitempty,uuid"`
	Participants []string `json:"participants" validate:"omitempty,max=50,dive,uuid"`
}

// Validate implements Validator.
func (s StartCallRequest) Validate() []h.FieldError {
	if s.EventID == nil && len(s.Participants) == 0 {
		return []h.FieldError{{Field: "participants", Message: "participants are required when event_id is not set"}}
	}
	return nil
}

// ICEServer is a WebRTC ICE server entry.
type ICEServer struct {
	URLs []string `json:"urls"`
}

// ICEConfigResponse is the response body for GET /video/ice-servers.
type ICEConfigResponse struct {
	ICEServers []ICEServer `json:"ice_servers"`
}

// CallSuccessResponse is the success response envelope for single-call endpoints.
type CallSuccessResponse struct {
	Data  *domain.VideoCall `json:"data"`
	Error *h.APIError       `json:"error"`
}

type VideoController struct {
	Logger     *slog.Logger
	Service    domain.VideoService
	Rooms      CallRooms
	Upgrader   *websocket.Upgrader
	STUNServer string
}

func NewVideoController(logger *slog.Logger, svc domain.VideoService, rooms CallRooms, upgrader *websocket.Upgrader, stunServer string) *VideoController {
	return &VideoController{
		Logger:     logger,
		Service:    svc,
		Rooms:      rooms,
		Upgrader:   upgrader,
		STUNServer: stunServer,
	}
}

// StartCall godoc
// @Summary Start a video call
// @Description Starts an event call (caller must be an active member) or a call with the listed participants. Participants are notified by push.
// @Tags video
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body StartCallRequest true "Call"
// @Success 201 {object} controllers.CallSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /video/calls [post]
func (c *VideoController) StartCall(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req StartCallRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	call := &domain.VideoCall{
		EventID:      req.EventID,
		CreatorID:    userID,
		Participants: req.Participants,
	}
	if err := c.Service.StartCall(r.Context(), call); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, call)
}

// ListActiveCalls godoc
// @Summary My active calls
// @Tags video
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse{data=[]domain.VideoCall}
// @Router /video/calls/active [get]
func (c *VideoController) ListActiveCalls(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	calls, err := c.Service.ListActiveCalls(r.Context(), userID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, calls)
}

// ListEventCalls godoc
// @Summary Calls of an event
// @Tags video
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=[]domain.VideoCall}
// @Router /video/calls/event/{eventID} [get]
func (c *VideoController) ListEventCalls(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	calls, err := c.Service.ListEventCalls(r.Context(), userID, eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, calls)
}

// GetCall godoc
// @Summary Get a call
// @Tags video
// @Produce json
// @Security BearerAuth
// @Param callID path string true "Call ID (UUID)"
// @Success 200 {object} controllers.CallSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /video/calls/{callID} [get]
func (c *VideoController) GetCall(w http.ResponseWriter, r *http.Request) {
	c.withCall(w, r, c.Service.GetCall)
}

// JoinCall godoc
// @Summary Join a call
// @Tags video
// @Produce json
// @Security BearerAuth
// @Param callID path string true "Call ID (UUID)"
// @Success 200 {object} controllers.CallSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /video/calls/{callID}/join [post]
func (c *VideoController) JoinCall(w http.ResponseWriter, r *http.Request) {
	c.withCall(w, r, c.Service.JoinCall)
}

// LeaveCall godoc
// @Summary Leave a call
// @Tags video
// @Produce json
// @Security BearerAuth
// @Param callID path string true "Call ID (UUID)"
// @Success 200 {object} controllers.CallSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /video/calls/{callID}/leave [post]
func (c *VideoController) LeaveCall(w http.ResponseWriter, r *http.Request) {
	c.withCall(w, r, c.Service.LeaveCall)
}

// EndCall godoc
// @Summary End a call
// @Description Only the creator may end a call. Connected sockets receive call_ended and are closed.
// @Tags video
// @Produce json
// @Security BearerAuth
// @Param callID path string true "Call ID (UUID)"
// @Success 200 {object} controllers.CallSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /video/calls/{callID}/end [post]
func (c *VideoController) EndCall(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	callID, ok := h.PathUUID(w, r, "callID")
	if !ok {
		return
	}
	call, err := c.Service.EndCall(r.Context(), userID, callID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	c.Rooms.EndCall(callID, userID)
	h.WriteJSONSuccess(w, http.StatusOK, call)
}

// ListParticipants godoc
// @Summary Call participants
// @Description Participants with profile data and whether they hold a signaling socket.
// @Tags video
// @Produce json
// @Security BearerAuth
// @Param callID path string true "Call ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=[]domain.CallParticipant}
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /video/calls/{callID}/participants [get]
func (c *VideoController) ListParticipants(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	callID, ok := h.PathUUID(w, r, "callID")
	if !ok {
		return
	}
	participants, err := c.Service.ListParticipants(r.Context(), userID, callID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, participants)
}

// ICEServers godoc
// @Summary WebRTC ICE servers
// @Tags video
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse{data=ICEConfigResponse}
// @Router /video/ice-servers [get]
func (c *VideoController) ICEServers(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	resp := ICEConfigResponse{ICEServers: []ICEServer{}}
	if c.STUNServer != "" {
		resp.ICEServers = append(resp.ICEServers, ICEServer{URLs: []string{c.STUNServer}})
	}
	h.WriteJSONSuccess(w, http.StatusOK, resp)
}

// ServeWS godoc
// @Summary Call signaling WebSocket
// @Description Relays offer, answer and ice_candidate frames between room members and broadcasts mute, unmute and video_toggle. The call must be active and visible to the caller.
// @Tags video
// @Security BearerAuth
// @Param callID path string true "Call ID (UUID)"
// @Param token query string false "Access token for browsers"
// @Success 101
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /video/ws/{callID} [get]
func (c *VideoController) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	callID, ok := h.PathUUID(w, r, "callID")
	if !ok {
		return
	}
	call, err := c.Service.GetCall(r.Context(), userID, callID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if !call.IsActive {
		h.WriteServiceError(w, r, c.Logger, domain.ErrCallEnded)
		return
	}
	ws, err := c.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.Logger.DebugContext(r.Context(), "websocket upgrade failed", "err", err)
		return
	}
	c.Rooms.Serve(r.Context(), ws, callID, userID)
}

// CallSubresource serves GET /video/calls/event/{eventID} and
// GET /video/calls/{callID}/participants, which share one mux pattern.
func (c *VideoController) CallSubresource(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.PathValue("callID") == "event":
		r.SetPathValue("eventID", r.PathValue("sub"))
		c.ListEventCalls(w, r)
	case r.PathValue("sub") == "participants":
		c.ListParticipants(w, r)
	default:
		h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "not found")
	}
}

type callAction func(ctx context.Context, callerID, callID string) (*domain.VideoCall, error)

func (c *VideoController) withCall(w http.ResponseWriter, r *http.Request, action callAction) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	callID, ok := h.PathUUID(w, r, "callID")
	if !ok {
		return
	}
	call, err := action(r.Context(), userID, callID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, call)
}
