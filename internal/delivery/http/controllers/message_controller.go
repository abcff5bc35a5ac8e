package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	h "conduit/internal/delivery/http/helpers"
	"conduit/internal/domain"
)

// MessageRelay pushes a stored message to the connected sockets of its audience.
type MessageRelay interface {
	Deliver(msg *domain.Message, audience []string)
}

// ChatServer runs a chat socket for a user until it closes.
type ChatServer interface {
	Serve(ctx context.Context, ws *websocket.Conn, userID string)
}

// SendMessageRequest is the request body for POST /messages.
// Exactly one of event_id or recipient_id must be set.
type SendMessageRequest struct {
	EventID     *string            `json:"event_id" validate:"omitempty,uuid"`
	RecipientID *string            `json:"recipient_id" validate:"omitempty,uuid"`
	Content     string             `json:"content" validate:"required,max=5000"`
	MessageType domain.MessageType `json:"message_type" validate:"omitempty,oneof=text image location system"`
	Metadata    map[string]any     `json:"metadata"`
}

// Validate implements Validator.
func (s SendMessageRequest) Validate() []h.FieldError {
	if (s.EventID == nil) == (s.RecipientID == nil) {
		return []h.FieldError{{Field: "event_id", Message: "exactly one of event_id or recipient_id is required"}}
	}
	return nil
}

// MessageSuccessResponse is the success response envelope for single-message endpoints.
type MessageSuccessResponse struct {
	Data  *domain.Message `json:"data"`
	Error *h.APIError     `json:"error"`
}

type MessageController struct {
	Logger   *slog.Logger
	Service  domain.MessageService
	Relay    MessageRelay
	Chat     ChatServer
	Upgrader *websocket.Upgrader
}

func NewMessageController(logger *slog.Logger, svc domain.MessageService, relay MessageRelay, chat ChatServer, upgrader *websocket.Upgrader) *MessageController {
	return &MessageController{
		Logger:   logger,
		Service:  svc,
		Relay:    relay,
		Chat:     chat,
		Upgrader: upgrader,
	}
}

// SendMessage godoc
// @Summary Send a message
// @Description HTTP fallback for the WebSocket send. The stored message is relayed to connected recipients.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SendMessageRequest true "Message"
// @Success 201 {object} controllers.MessageSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /messages [post]
func (c *MessageController) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	msg := &domain.Message{
		SenderID:    userID,
		EventID:     req.EventID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
		MessageType: req.MessageType,
		Metadata:    req.Metadata,
	}
	audience, err := c.Service.Send(r.Context(), msg)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if c.Relay != nil {
		c.Relay.Deliver(msg, audience)
	}
	h.WriteJSONSuccess(w, http.StatusCreated, msg)
}

// ListEventMessages godoc
// @Summary Event chat history
// @Description Newest first. Only active members can read an event's messages.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param limit query int false "Maximum messages (default 50, max 100)"
// @Success 200 {object} helpers.APIResponse{data=[]domain.Message}
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /messages/event/{eventID} [get]
func (c *MessageController) ListEventMessages(w http.ResponseWriter, r *http.Request) {
	c.listMessages(w, r, "eventID", c.Service.ListEventMessages)
}

// ListDirectMessages godoc
// @Summary Direct message history
// @Description Messages exchanged between the caller and another user, newest first.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param userID path string true "Other user ID (UUID)"
// @Param limit query int false "Maximum messages (default 50, max 100)"
// @Success 200 {object} helpers.APIResponse{data=[]domain.Message}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /messages/direct/{userID} [get]
func (c *MessageController) ListDirectMessages(w http.ResponseWriter, r *http.Request) {
	c.listMessages(w, r, "userID", c.Service.ListDirectMessages)
}

type messageLister func(ctx context.Context, callerID, id string, limit int) ([]*domain.Message, error)

func (c *MessageController) listMessages(w http.ResponseWriter, r *http.Request, param string, list messageLister) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := h.PathUUID(w, r, param)
	if !ok {
		return
	}
	limit, ok := h.QueryInt(r, "limit", 0)
	if !ok {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "limit must be an integer")
		return
	}
	messages, err := list(r.Context(), userID, id, limit)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, messages)
}

// MarkRead godoc
// @Summary Mark a direct message as read
// @Description Only the recipient may mark a message as read.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param messageID path string true "Message ID (UUID)"
// @Success 200 {object} controllers.MessageSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /messages/{messageID}/read [patch]
func (c *MessageController) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	messageID, ok := h.PathUUID(w, r, "messageID")
	if !ok {
		return
	}
	msg, err := c.Service.MarkRead(r.Context(), userID, messageID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, msg)
}

// ServeWS godoc
// @Summary Chat WebSocket
// @Description Upgrades to a WebSocket. Send {"type":"send_message","data":{...}}; receive new_message and message_sent frames. The token may be passed as a query parameter.
// @Tags messages
// @Security BearerAuth
// @Param token query string false "Access token for browsers"
// @Success 101
// @Router /messages/ws [get]
func (c *MessageController) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	ws, err := c.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		c.Logger.DebugContext(r.Context(), "websocket upgrade failed", "err", err)
		return
	}
	c.Chat.Serve(r.Context(), ws, userID)
}
