package domain

import (
	"context"
	"time"
)

// Location is the current position of a user. There is at most one row per user.
// swagger:model Location
type Location struct {
	UserID    string    `json:"user_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	EventID   *string   `json:"event_id,omitempty"`
	IsShared  bool      `json:"is_shared"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParticipantLocation pairs an event participant with their latest visible location.
// Location is nil when the participant has none or does not share it with the caller.
// swagger:model ParticipantLocation
type ParticipantLocation struct {
	Participant *Participant `json:"participant"`
	Location    *Location    `json:"location"`
}

// LocationRepository defines the interface for current-location storage.
type LocationRepository interface {
	Upsert(ctx context.Context, loc *Location) error
	GetByUserID(ctx context.Context, userID string) (*Location, error)
	SetSharing(ctx context.Context, userID string, shared bool) (*Location, error)
	ListByUserIDs(ctx context.Context, userIDs []string) ([]*Location, error)
}

// LocationService defines the business logic for location sharing.
type LocationService interface {
	UpdateLocation(ctx context.Context, loc *Location) error
	SetSharing(ctx context.Context, callerID string, shared bool) (*Location, error)
	GetUserLocation(ctx context.Context, callerID, userID string) (*Location, error)
	ListEventLocations(ctx context.Context, callerID, eventID string) ([]*ParticipantLocation, error)
}
