package domain

import (
	"context"
	"slices"
	"time"
)

// VideoCall is a signaling session between a set of participants.
// EndedAt is set once, when the call ends; an ended call never becomes active again.
// swagger:model VideoCall
type VideoCall struct {
	ID           string     `json:"id"`
	EventID      *string    `json:"event_id,omitempty"`
	CreatorID    string     `json:"creator_id"`
	Participants []string   `json:"participants"`
	IsGroupCall  bool       `json:"is_group_call"`
	IsActive     bool       `json:"is_active"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
}

// HasParticipant reports whether userID is in the participant set.
func (c *VideoCall) HasParticipant(userID string) bool {
	return slices.Contains(c.Participants, userID)
}

// CallParticipant is a call participant with profile data and realtime presence.
// swagger:model CallParticipant
type CallParticipant struct {
	UserID    string  `json:"user_id"`
	FullName  string  `json:"full_name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	IsOnline  bool    `json:"is_online"`
}

// CallPresence reports whether a user currently holds a signaling connection to a call.
type CallPresence interface {
	IsOnline(callID, userID string) bool
}

// VideoCallRepository defines the interface for video call storage.
type VideoCallRepository interface {
	Create(ctx context.Context, call *VideoCall) error
	GetByID(ctx context.Context, id string) (*VideoCall, error)
	GetActiveByEvent(ctx context.Context, eventID string) (*VideoCall, error)
	ListActiveForUser(ctx context.Context, userID string) ([]*VideoCall, error)
	ListByEvent(ctx context.Context, eventID string) ([]*VideoCall, error)
	AddParticipant(ctx context.Context, id, userID string) (*VideoCall, error)
	RemoveParticipant(ctx context.Context, id, userID string) (*VideoCall, error)
	End(ctx context.Context, id string, at time.Time) (*VideoCall, error)
}

// VideoService defines the business logic for video call lifecycle.
type VideoService interface {
	StartCall(ctx context.Context, call *VideoCall) error
	GetCall(ctx context.Context, callerID, callID string) (*VideoCall, error)
	JoinCall(ctx context.Context, callerID, callID string) (*VideoCall, error)
	LeaveCall(ctx context.Context, callerID, callID string) (*VideoCall, error)
	EndCall(ctx context.Context, callerID, callID string) (*VideoCall, error)
	ListActiveCalls(ctx context.Context, callerID string) ([]*VideoCall, error)
	ListEventCalls(ctx context.Context, callerID, eventID string) ([]*VideoCall, error)
	ListParticipants(ctx context.Context, callerID, callID string) ([]*CallParticipant, error)
}
