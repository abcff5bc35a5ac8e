package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"conduit/internal/domain"
)

// Inbound chat frame types.
const (
	frameSendMessage = "send_message"
	framePing        = "ping"
)

// sendMessageData is the payload of a send_message frame.
type sendMessageData struct {
	EventID     *string        `json:"event_id"`
	RecipientID *string        `json:"recipient_id"`
	Content     string         `json:"content"`
	MessageType string         `json:"message_type"`
	Metadata    map[string]any `json:"metadata"`
}

// Hub tracks chat sockets per user and fans stored messages out to them.
// A user may hold several sockets (one per device).
type Hub struct {
	messages domain.MessageService
	logger   *slog.Logger

	mu    sync.RWMutex
	users map[string]map[*client]struct{}
}

func NewHub(messages domain.MessageService, logger *slog.Logger) *Hub {
	return &Hub{
		messages: messages,
		logger:   logger.With("component", "chat_hub"),
		users:    make(map[string]map[*client]struct{}),
	}
}

// Serve registers ws for userID and processes inbound frames until the socket closes.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, userID string) {
	c := newClient(ws, userID, "chat")
	h.register(c)
	defer func() {
		h.unregister(c)
		c.close()
	}()

	c.send(Frame{Type: FrameConnected, Data: map[string]string{"user_id": userID}})

	for {
		var in inbound
		if err := ws.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.DebugContext(ctx, "chat socket closed", "user_id", userID, "err", err)
			}
			return
		}
		switch in.Type {
		case frameSendMessage:
			h.handleSend(ctx, c, in.Data)
		case framePing:
			c.send(Frame{Type: FramePong})
		default:
			c.send(errorFrame("unknown_type", "unsupported frame type "+in.Type))
		}
	}
}

func (h *Hub) handleSend(ctx context.Context, c *client, raw json.RawMessage) {
	var data sendMessageData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.send(errorFrame("invalid_json", "send_message data must be an object"))
		return
	}
	eventID, recipientID := optionalID(data.EventID), optionalID(data.RecipientID)
	if field, ok := validIDs(eventID, recipientID); !ok {
		c.send(errorFrame("validation_error", field+" must be a valid UUID"))
		return
	}
	msg := &domain.Message{
		SenderID:    c.userID,
		EventID:     eventID,
		RecipientID: recipientID,
		Content:     data.Content,
		MessageType: domain.MessageType(data.MessageType),
		Metadata:    data.Metadata,
	}
	audience, err := h.messages.Send(ctx, msg)
	if err != nil {
		code, message := errorCode(err)
		if code == "internal_error" {
			h.logger.ErrorContext(ctx, "chat send failed", "user_id", c.userID, "err", err)
		}
		c.send(errorFrame(code, message))
		return
	}
	h.Deliver(msg, audience)
}

// Deliver relays a stored message to every socket of the audience and echoes it
// to the sender's sockets.
func (h *Hub) Deliver(msg *domain.Message, audience []string) {
	h.SendToUsers(audience, Frame{Type: FrameNewMessage, Data: msg})
	h.SendToUsers([]string{msg.SenderID}, Frame{Type: FrameMessageSent, Data: msg})
}

// SendToUsers writes f to every connected socket of userIDs. Offline users are skipped.
func (h *Hub) SendToUsers(userIDs []string, f Frame) {
	for _, c := range h.clientsOf(userIDs) {
		c.send(f)
	}
}

// Online reports whether userID has at least one chat socket.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

func (h *Hub) clientsOf(userIDs []string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*client
	for _, id := range userIDs {
		for c := range h.users[id] {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.users[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.users[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.users[c.userID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.userID)
	}
}

// optionalID treats blank and "undefined" ids sent by web clients as absent.
func optionalID(id *string) *string {
	if id == nil || *id == "" || *id == "undefined" || *id == "null" {
		return nil
	}
	return id
}

func validIDs(eventID, recipientID *string) (string, bool) {
	if eventID != nil {
		if _, err := uuid.Parse(*eventID); err != nil {
			return "event_id", false
		}
	}
	if recipientID != nil {
		if _, err := uuid.Parse(*recipientID); err != nil {
			return "recipient_id", false
		}
	}
	return "", true
}

// errorCode mirrors the HTTP error mapping so a frame carries the same code
// a REST call would.
func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "validation_error", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return "not_found", "not found"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrNotMember):
		return "forbidden", err.Error()
	case errors.Is(err, domain.ErrAlreadyMember),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrDuplicateInvitation),
		errors.Is(err, domain.ErrInvitationResponded),
		errors.Is(err, domain.ErrCallEnded),
		errors.Is(err, domain.ErrCreatorCannotLeave):
		return "conflict", err.Error()
	default:
		return "internal_error", "internal error"
	}
}
