package domain

import (
	"context"
	"time"
)

// PinType classifies a map pin.
type PinType string

const (
	PinTypeLocation     PinType = "location"
	PinTypeMeetingPoint PinType = "meeting_point"
	PinTypeLandmark     PinType = "landmark"
	PinTypeCustom       PinType = "custom"
)

// Pin defaults.
const (
	DefaultPinColor = "#FF0000"
	DefaultPinIcon  = "pin"
)

// Pin is a point of interest on an event map. Only its creator may change it.
// swagger:model Pin
type Pin struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	CreatorID   string    `json:"creator_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	PinType     PinType   `json:"pin_type"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ApplyDefaults fills the optional presentation fields.
func (p *Pin) ApplyDefaults() {
	if p.PinType == "" {
		p.PinType = PinTypeLocation
	}
	if p.Color == "" {
		p.Color = DefaultPinColor
	}
	if p.Icon == "" {
		p.Icon = DefaultPinIcon
	}
}

// PinUpdate holds the creator-editable pin fields. Nil fields are left unchanged.
type PinUpdate struct {
	Title       *string
	Description *string
	Latitude    *float64
	Longitude   *float64
	PinType     *PinType
	Color       *string
	Icon        *string
	IsPublic    *bool
}

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

// PinRepository defines the interface for pin storage.
type PinRepository interface {
	Create(ctx context.Context, pin *Pin) error
	GetByID(ctx context.Context, id string) (*Pin, error)
	ListByEvent(ctx context.Context, eventID string, pinType *PinType) ([]*Pin, error)
	ListInBounds(ctx context.Context, eventID string, b Bounds) ([]*Pin, error)
	Search(ctx context.Context, eventID, query string) ([]*Pin, error)
	Update(ctx context.Context, id string, upd PinUpdate) (*Pin, error)
	Delete(ctx context.Context, id string) error
}

// PinService defines the business logic for map pins.
type PinService interface {
	CreatePin(ctx context.Context, pin *Pin) error
	GetPin(ctx context.Context, callerID, pinID string) (*Pin, error)
	ListEventPins(ctx context.Context, callerID, eventID string, pinType *PinType) ([]*Pin, error)
	ListPinsInBounds(ctx context.Context, callerID, eventID string, b Bounds) ([]*Pin, error)
	SearchPins(ctx context.Context, callerID, eventID, query string) ([]*Pin, error)
	UpdatePin(ctx context.Context, callerID, pinID string, upd PinUpdate) (*Pin, error)
	DeletePin(ctx context.Context, callerID, pinID string) error
}
