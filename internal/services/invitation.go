package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"conduit/internal/domain"
	"conduit/internal/policy"
)

type invitationService struct {
	invitations    domain.EventInvitationRepository
	events         domain.EventRepository
	memberships    domain.MembershipRepository
	profiles       domain.ProfileRepository
	calls          domain.VideoCallRepository
	emails         domain.EmailService
	appName        string
	contextTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewInvitationService creates an InvitationService. emails may be nil, in which
// case invitees are not emailed.
func NewInvitationService(
	invitations domain.EventInvitationRepository,
	events domain.EventRepository,
	memberships domain.MembershipRepository,
	profiles domain.ProfileRepository,
	calls domain.VideoCallRepository,
	emails domain.EmailService,
	appName string,
	timeout time.Duration,
	logger *slog.Logger,
) domain.InvitationService {
	return &invitationService{
		invitations:    invitations,
		events:         events,
		memberships:    memberships,
		profiles:       profiles,
		calls:          calls,
		emails:         emails,
		appName:        appName,
		contextTimeout: timeout,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *invitationService) Invite(ctx context.Context, inv *domain.EventInvitation) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if inv.InviteeID == "" {
		return invalidf("invitee_id is required")
	}
	if inv.InviteeID == inv.InviterID {
		return invalidf("cannot invite yourself")
	}
	if inv.Message != nil {
		msg := strings.TrimSpace(*inv.Message)
		if msg == "" {
			inv.Message = nil
		} else {
			inv.Message = &msg
		}
	}

	event, active, err := loadVisibleEvent(ctx, s.events, s.memberships, inv.InviterID, inv.EventID)
	if err != nil {
		return err
	}
	if !policy.CanInvite(inv.InviterID, inv, active) {
		return domain.ErrNotMember
	}
	invitee, err := s.profiles.GetByID(ctx, inv.InviteeID)
	if err != nil {
		return fmt.Errorf("load invitee: %w", err)
	}
	inviteeActive, err := isActiveMember(ctx, s.memberships, inv.EventID, inv.InviteeID)
	if err != nil {
		return err
	}
	if inviteeActive {
		return domain.ErrAlreadyMember
	}

	inv.Status = domain.InvitationPending
	inv.CreatedAt = s.now()
	inv.RespondedAt = nil
	if err := s.invitations.Create(ctx, inv); err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}

	s.sendInvitationEmail(ctx, inv, event, invitee)
	return nil
}

func (s *invitationService) sendInvitationEmail(ctx context.Context, inv *domain.EventInvitation, event *domain.Event, invitee *domain.Profile) {
	if s.emails == nil {
		return
	}
	inviterName := "Someone"
	if p, err := s.profiles.GetByID(ctx, inv.InviterID); err == nil {
		inviterName = p.FullName
	}
	data := &domain.EventInvitationEmailData{
		Email:       invitee.Email,
		InviteeName: invitee.FullName,
		InviterName: inviterName,
		EventTitle:  event.Title,
		AppName:     s.appName,
	}
	if inv.Message != nil {
		data.Message = *inv.Message
	}
	if err := s.emails.SendEventInvitation(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "invitation email failed", "invitation_id", inv.ID, "err", err)
	}
}

// ListEventInvitations is restricted to active members of the event.
func (s *invitationService) ListEventInvitations(ctx context.Context, callerID, eventID string) ([]*domain.EventInvitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, active, err := loadVisibleEvent(ctx, s.events, s.memberships, callerID, eventID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, domain.ErrNotFound
	}
	return s.invitations.ListByEventID(ctx, eventID)
}

func (s *invitationService) ListMyInvitations(ctx context.Context, callerID string) ([]*domain.EventInvitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.invitations.ListPendingForInvitee(ctx, callerID)
}

// Respond records the invitee's answer. Accepting joins the event in the same
// transaction and adds the invitee to the event's active call.
func (s *invitationService) Respond(ctx context.Context, callerID, invitationID string, status domain.InvitationStatus) (*domain.EventInvitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	active, err := isActiveMember(ctx, s.memberships, inv.EventID, callerID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewInvitation(callerID, inv, active) {
		return nil, domain.ErrNotFound
	}
	if !policy.CanRespondInvitation(callerID, inv) {
		return nil, domain.ErrForbidden
	}
	if err := inv.Respond(status, s.now()); err != nil {
		return nil, err
	}
	if err := s.invitations.SaveResponse(ctx, inv); err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}
	if inv.Status == domain.InvitationAccepted {
		syncEventCall(ctx, s.calls, s.logger, inv.EventID, callerID, true)
	}
	return inv, nil
}
