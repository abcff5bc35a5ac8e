package domain

import (
	"context"
	"time"
)

// EventStatus is the lifecycle status of an event.
type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusActive, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// Event represents a social event created by a user.
// ParticipantCount always equals the number of active memberships of the event.
// swagger:model Event
type Event struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Description      *string     `json:"description,omitempty"`
	StartDate        time.Time   `json:"start_date"`
	EndDate          *time.Time  `json:"end_date,omitempty"`
	Location         *string     `json:"location,omitempty"`
	LocationLat      *float64    `json:"location_lat,omitempty"`
	LocationLng      *float64    `json:"location_lng,omitempty"`
	IsPrivate        bool        `json:"is_private"`
	Status           EventStatus `json:"status"`
	CreatorID        string      `json:"creator_id"`
	ParticipantCount int         `json:"participant_count"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewEvent returns a new active Event. ID is set by the repository on create.
func NewEvent(title, creatorID string, startDate time.Time, isPrivate bool, now time.Time) *Event {
	return &Event{
		Title:     title,
		CreatorID: creatorID,
		StartDate: startDate,
		IsPrivate: isPrivate,
		Status:    EventStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EventUpdate holds the creator-editable event fields. Nil fields are left unchanged.
type EventUpdate struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Location    *string
	LocationLat *float64
	LocationLng *float64
	IsPrivate   *bool
	Status      *EventStatus
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	// Create inserts the event and the creator's active membership in one transaction.
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, id string, upd EventUpdate) (*Event, error)
	ListVisible(ctx context.Context, callerID string, params PaginationParams) ([]*Event, int, error)
	ListByMember(ctx context.Context, userID string) ([]*Event, error)
	// Recount recomputes participant_count from the active memberships and returns it.
	Recount(ctx context.Context, id string) (int, error)
}

// EventService defines the business logic for events and their membership.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, callerID, eventID string) (*Event, error)
	ListVisibleEvents(ctx context.Context, callerID string, params PaginationParams) ([]*Event, int, error)
	ListMyEvents(ctx context.Context, callerID string) ([]*Event, error)
	UpdateEvent(ctx context.Context, callerID, eventID string, upd EventUpdate) (*Event, error)
	CancelEvent(ctx context.Context, callerID, eventID string) (*Event, error)
	JoinEvent(ctx context.Context, callerID, eventID string) (*Event, error)
	LeaveEvent(ctx context.Context, callerID, eventID string) (*Event, error)
	ListParticipants(ctx context.Context, callerID, eventID string) ([]*Participant, error)
}
