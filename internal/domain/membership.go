package domain

import (
	"context"
	"time"
)

// MembershipRole is the role of a user inside an event.
type MembershipRole string

const (
	MembershipRoleCreator     MembershipRole = "creator"
	MembershipRoleAdmin       MembershipRole = "admin"
	MembershipRoleParticipant MembershipRole = "participant"
)

// Membership links a user to an event. Rows are deactivated rather than deleted.
// swagger:model Membership
type Membership struct {
	UserID   string         `json:"user_id"`
	EventID  string         `json:"event_id"`
	Role     MembershipRole `json:"role"`
	JoinedAt time.Time      `json:"joined_at"`
	IsActive bool           `json:"is_active"`
}

// Participant is an active membership joined with the member's profile.
// swagger:model Participant
type Participant struct {
	UserID    string         `json:"user_id"`
	Role      MembershipRole `json:"role"`
	JoinedAt  time.Time      `json:"joined_at"`
	FullName  string         `json:"full_name"`
	Email     string         `json:"email"`
	AvatarURL *string        `json:"avatar_url,omitempty"`
}

// ParticipantDelta returns the change to an event's participant_count caused by
// moving a membership from prev to next. prev is nil when the row is being inserted.
//
//	insert active        +1
//	active -> inactive   -1
//	inactive -> active   +1
//	anything else         0
func ParticipantDelta(prev *bool, next bool) int {
	if prev == nil {
		if next {
			return 1
		}
		return 0
	}
	switch {
	case *prev && !next:
		return -1
	case !*prev && next:
		return 1
	}
	return 0
}

// MembershipRepository defines the interface for membership storage.
// Join and Leave apply the participant_count delta in the same transaction as the row change.
type MembershipRepository interface {
	Join(ctx context.Context, eventID, userID string, role MembershipRole) (*Membership, error)
	Leave(ctx context.Context, eventID, userID string) (*Membership, error)
	Get(ctx context.Context, eventID, userID string) (*Membership, error)
	ActiveEventIDs(ctx context.Context, userID string) ([]string, error)
	ListActiveUserIDs(ctx context.Context, eventID string) ([]string, error)
	ListParticipants(ctx context.Context, eventID string) ([]*Participant, error)
}
