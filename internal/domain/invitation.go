package domain

import (
	"context"
	"fmt"
	"time"
)

// InvitationStatus is the state of an event invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// EventInvitation invites one user to one event. There is at most one invitation per (event, invitee).
// swagger:model EventInvitation
type EventInvitation struct {
	ID          string           `json:"id"`
	EventID     string           `json:"event_id"`
	InviterID   string           `json:"inviter_id"`
	InviteeID   string           `json:"invitee_id"`
	Message     *string          `json:"message,omitempty"`
	Status      InvitationStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
}

// Respond moves a pending invitation to accepted or declined and stamps RespondedAt.
// Responded invitations are terminal.
func (i *EventInvitation) Respond(status InvitationStatus, at time.Time) error {
	if status != InvitationAccepted && status != InvitationDeclined {
		return fmt.Errorf("%w: response must be accepted or declined", ErrInvalidInput)
	}
	if i.Status != InvitationPending || i.RespondedAt != nil {
		return ErrInvitationResponded
	}
	i.Status = status
	i.RespondedAt = &at
	return nil
}

// EventInvitationRepository defines storage operations for event invitations.
type EventInvitationRepository interface {
	Create(ctx context.Context, inv *EventInvitation) error
	GetByID(ctx context.Context, id string) (*EventInvitation, error)
	ListByEventID(ctx context.Context, eventID string) ([]*EventInvitation, error)
	ListPendingForInvitee(ctx context.Context, inviteeID string) ([]*EventInvitation, error)
	// SaveResponse persists a response only if the stored row is still pending.
	// An accepted response also activates the invitee's membership in the same transaction.
	SaveResponse(ctx context.Context, inv *EventInvitation) error
}

// InvitationService defines the business logic for invitations.
type InvitationService interface {
	Invite(ctx context.Context, inv *EventInvitation) error
	ListEventInvitations(ctx context.Context, callerID, eventID string) ([]*EventInvitation, error)
	ListMyInvitations(ctx context.Context, callerID string) ([]*EventInvitation, error)
	Respond(ctx context.Context, callerID, invitationID string, status InvitationStatus) (*EventInvitation, error)
}
