package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MessageType classifies message content.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeLocation MessageType = "location"
	MessageTypeSystem   MessageType = "system"
)

// Message is a chat message. It belongs to exactly one of an event or a direct recipient.
// swagger:model Message
type Message struct {
	ID          string         `json:"id"`
	SenderID    string         `json:"sender_id"`
	EventID     *string        `json:"event_id,omitempty"`
	RecipientID *string        `json:"recipient_id,omitempty"`
	Content     string         `json:"content"`
	MessageType MessageType    `json:"message_type"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IsRead      bool           `json:"is_read"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
}

// IsDirect reports whether the message is addressed to a single recipient.
func (m *Message) IsDirect() bool {
	return m.RecipientID != nil
}

// Validate checks the event/recipient exclusivity and the content rules.
func (m *Message) Validate() error {
	hasEvent := m.EventID != nil && *m.EventID != ""
	hasRecipient := m.RecipientID != nil && *m.RecipientID != ""
	if hasEvent == hasRecipient {
		return fmt.Errorf("%w: exactly one of event_id or recipient_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	switch m.MessageType {
	case MessageTypeText, MessageTypeImage, MessageTypeLocation, MessageTypeSystem:
	case "":
		m.MessageType = MessageTypeText
	default:
		return fmt.Errorf("%w: unknown message_type %q", ErrInvalidInput, m.MessageType)
	}
	if hasRecipient && *m.RecipientID == m.SenderID {
		return fmt.Errorf("%w: cannot send a direct message to yourself", ErrInvalidInput)
	}
	return nil
}

// MessageRepository defines the interface for message storage.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListByEvent(ctx context.Context, eventID string, limit int) ([]*Message, error)
	ListDirect(ctx context.Context, userA, userB string, limit int) ([]*Message, error)
	MarkRead(ctx context.Context, id string) (*Message, error)
}

// MessageService defines the business logic for chat.
// Send persists the message and returns the user IDs it should be relayed to (sender excluded).
type MessageService interface {
	Send(ctx context.Context, m *Message) ([]string, error)
	ListEventMessages(ctx context.Context, callerID, eventID string, limit int) ([]*Message, error)
	ListDirectMessages(ctx context.Context, callerID, otherID string, limit int) ([]*Message, error)
	MarkRead(ctx context.Context, callerID, messageID string) (*Message, error)
}
