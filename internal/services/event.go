package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"conduit/internal/domain"
	"conduit/internal/policy"
)

const maxEventTitleLen = 200

type eventService struct {
	events         domain.EventRepository
	memberships    domain.MembershipRepository
	calls          domain.VideoCallRepository
	contextTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewEventService creates an EventService. Every event gets a group video call
// that follows the event's active membership.
func NewEventService(
	events domain.EventRepository,
	memberships domain.MembershipRepository,
	calls domain.VideoCallRepository,
	timeout time.Duration,
	logger *slog.Logger,
) domain.EventService {
	return &eventService{
		events:         events,
		memberships:    memberships,
		calls:          calls,
		contextTimeout: timeout,
		logger:         logger,
		now:            time.Now,
	}
}

func validateEventTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if n := utf8.RuneCountInString(title); n == 0 || n > maxEventTitleLen {
		return "", invalidf("title must be 1 to %d characters", maxEventTitleLen)
	}
	return title, nil
}

func validateEventCoordinates(lat, lng *float64) error {
	if lat == nil && lng == nil {
		return nil
	}
	var la, lo float64
	if lat != nil {
		la = *lat
	}
	if lng != nil {
		lo = *lng
	}
	return validCoordinates(la, lo)
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.CreatorID == "" {
		return invalidf("event creator is required")
	}
	title, err := validateEventTitle(event.Title)
	if err != nil {
		return err
	}
	event.Title = title
	if event.StartDate.IsZero() {
		return invalidf("start_date is required")
	}
	if event.EndDate != nil && event.EndDate.Before(event.StartDate) {
		return invalidf("end_date must not be before start_date")
	}
	if err := validateEventCoordinates(event.LocationLat, event.LocationLng); err != nil {
		return err
	}

	now := s.now()
	event.Status = domain.EventStatusActive
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.events.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}

	call := &domain.VideoCall{
		EventID:      &event.ID,
		CreatorID:    event.CreatorID,
		Participants: []string{event.CreatorID},
		IsGroupCall:  true,
		IsActive:     true,
		StartedAt:    now,
	}
	if err := s.calls.Create(ctx, call); err != nil {
		s.logger.WarnContext(ctx, "create event call failed", "event_id", event.ID, "err", err)
	}
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, callerID, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, _, err := loadVisibleEvent(ctx, s.events, s.memberships, callerID, eventID)
	return event, err
}

func (s *eventService) ListVisibleEvents(ctx context.Context, callerID string, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.events.ListVisible(ctx, callerID, params)
}

func (s *eventService) ListMyEvents(ctx context.Context, callerID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.events.ListByMember(ctx, callerID)
}

func (s *eventService) UpdateEvent(ctx context.Context, callerID, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, _, err := loadVisibleEvent(ctx, s.events, s.memberships, callerID, eventID)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutateEvent(callerID, event) {
		return nil, domain.ErrForbidden
	}

	if upd.Title != nil {
		title, err := validateEventTitle(*upd.Title)
		if err != nil {
			return nil, err
		}
		upd.Title = &title
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, invalidf("unknown status %q", *upd.Status)
	}
	start := event.StartDate
	if upd.StartDate != nil {
		start = *upd.StartDate
	}
	end := event.EndDate
	if upd.EndDate != nil {
		end = upd.EndDate
	}
	if end != nil && end.Before(start) {
		return nil, invalidf("end_date must not be before start_date")
	}
	lat, lng := event.LocationLat, event.LocationLng
	if upd.LocationLat != nil {
		lat = upd.LocationLat
	}
	if upd.LocationLng != nil {
		lng = upd.LocationLng
	}
	if err := validateEventCoordinates(lat, lng); err != nil {
		return nil, err
	}

	updated, err := s.events.Update(ctx, eventID, upd)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

// CancelEvent is the soft delete: the row stays with status cancelled.
func (s *eventService) CancelEvent(ctx context.Context, callerID, eventID string) (*domain.Event, error) {
	cancelled := domain.EventStatusCancelled
	return s.UpdateEvent(ctx, callerID, eventID, domain.EventUpdate{Status: &cancelled})
}

func (s *eventService) JoinEvent(ctx context.Context, callerID, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status == domain.EventStatusCancelled {
		return nil, invalidf("event is cancelled")
	}
	if !policy.CanInsertMembership(callerID, callerID) {
		return nil, domain.ErrForbidden
	}
	if _, err := s.memberships.Join(ctx, eventID, callerID, domain.MembershipRoleParticipant); err != nil {
		return nil, fmt.Errorf("join event: %w", err)
	}
	syncEventCall(ctx, s.calls, s.logger, eventID, callerID, true)

	return s.events.GetByID(ctx, eventID)
}

func (s *eventService) LeaveEvent(ctx context.Context, callerID, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, _, err := loadVisibleEvent(ctx, s.events, s.memberships, callerID, eventID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID == callerID {
		return nil, domain.ErrCreatorCannotLeave
	}
	if _, err := s.memberships.Leave(ctx, eventID, callerID); err != nil {
		return nil, fmt.Errorf("leave event: %w", err)
	}
	syncEventCall(ctx, s.calls, s.logger, eventID, callerID, false)

	return s.events.GetByID(ctx, eventID)
}

func (s *eventService) ListParticipants(ctx context.Context, callerID, eventID string) ([]*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, _, err := loadVisibleEvent(ctx, s.events, s.memberships, callerID, eventID); err != nil {
		return nil, err
	}
	return s.memberships.ListParticipants(ctx, eventID)
}

// syncEventCall adds or removes userID from the event's active group call.
// Failures are logged; membership is the source of truth.
func syncEventCall(ctx context.Context, calls domain.VideoCallRepository, logger *slog.Logger, eventID, userID string, add bool) {
	call, err := calls.GetActiveByEvent(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err == nil {
		if add {
			_, err = calls.AddParticipant(ctx, call.ID, userID)
		} else {
			_, err = calls.RemoveParticipant(ctx, call.ID, userID)
		}
	}
	if err != nil && !errors.Is(err, domain.ErrCallEnded) {
		logger.WarnContext(ctx, "sync event call participants failed", "event_id", eventID, "user_id", userID, "err", err)
	}
}
