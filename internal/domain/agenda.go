package domain

import (
	"context"
	"time"
)

// AgendaItem is a scheduled entry of an event, optionally anchored to a map pin.
// swagger:model AgendaItem
type AgendaItem struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	CreatorID   string     `json:"creator_id"`
	PinID       *string    `json:"pin_id,omitempty"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Location    *string    `json:"location,omitempty"`
	IsAllDay    bool       `json:"is_all_day"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AgendaItemUpdate holds the creator-editable agenda fields. Nil fields are left unchanged.
type AgendaItemUpdate struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	Location    *string
	IsAllDay    *bool
	PinID       *string
}

// TimeRange bounds agenda queries by start time. Nil ends are open.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// AgendaRepository defines the interface for agenda storage.
type AgendaRepository interface {
	Create(ctx context.Context, item *AgendaItem) error
	GetByID(ctx context.Context, id string) (*AgendaItem, error)
	ListByEvents(ctx context.Context, eventIDs []string, r TimeRange) ([]*AgendaItem, error)
	Update(ctx context.Context, id string, upd AgendaItemUpdate) (*AgendaItem, error)
	Delete(ctx context.Context, id string) error
}

// AgendaService defines the business logic for agenda items.
type AgendaService interface {
	CreateItem(ctx context.Context, item *AgendaItem) error
	GetItem(ctx context.Context, callerID, itemID string) (*AgendaItem, error)
	ListEventItems(ctx context.Context, callerID, eventID string, r TimeRange) ([]*AgendaItem, error)
	Calendar(ctx context.Context, callerID string, r TimeRange) ([]*AgendaItem, error)
	UpdateItem(ctx context.Context, callerID, itemID string, upd AgendaItemUpdate) (*AgendaItem, error)
	DeleteItem(ctx context.Context, callerID, itemID string) error
}
