package services

import (
	"context"
	"fmt"
	"time"

	"conduit/internal/domain"
	"conduit/internal/policy"
)

type locationService struct {
	locations      domain.LocationRepository
	events         domain.EventRepository
	memberships    domain.MembershipRepository
	contextTimeout time.Duration
	now            func() time.Time
}

// NewLocationService creates a LocationService. Locations are visible to their
// owner and, while shared, to users co-present in an active event.
func NewLocationService(
	locations domain.LocationRepository,
	events domain.EventRepository,
	memberships domain.MembershipRepository,
	timeout time.Duration,
) domain.LocationService {
	return &locationService{
		locations:      locations,
		events:         events,
		memberships:    memberships,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *locationService) UpdateLocation(ctx context.Context, loc *domain.Location) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if loc.UserID == "" {
		return invalidf("user is required")
	}
	if err := validCoordinates(loc.Latitude, loc.Longitude); err != nil {
		return err
	}
	if loc.Accuracy != nil && *loc.Accuracy < 0 {
		return invalidf("accuracy must not be negative")
	}
	if loc.Speed != nil && *loc.Speed < 0 {
		return invalidf("speed must not be negative")
	}
	if loc.EventID != nil {
		active, err := isActiveMember(ctx, s.memberships, *loc.EventID, loc.UserID)
		if err != nil {
			return err
		}
		if !active {
			return domain.ErrNotMember
		}
	}

	loc.UpdatedAt = s.now()
	if err := s.locations.Upsert(ctx, loc); err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}
	return nil
}

func (s *locationService) SetSharing(ctx context.Context, callerID string, shared bool) (*domain.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.locations.SetSharing(ctx, callerID, shared)
}

func (s *locationService) GetUserLocation(ctx context.Context, callerID, userID string) (*domain.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	loc, err := s.locations.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if callerID == userID {
		return loc, nil
	}
	callerEvents, err := s.memberships.ActiveEventIDs(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("caller events: %w", err)
	}
	ownerEvents, err := s.memberships.ActiveEventIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("owner events: %w", err)
	}
	if !policy.CanViewLocation(callerID, loc, callerEvents, ownerEvents) {
		return nil, domain.ErrNotFound
	}
	return loc, nil
}

// ListEventLocations returns every active participant of the event with the
// location the caller is allowed to see, if any.
func (s *locationService) ListEventLocations(ctx context.Context, callerID, eventID string) ([]*domain.ParticipantLocation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, active, err := loadVisibleEvent(ctx, s.events, s.memberships, callerID, eventID)
	if err != nil {
		return nil, err
	}
	participants, err := s.memberships.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	locs, err := s.locations.ListByUserIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	byUser := make(map[string]*domain.Location, len(locs))
	for _, l := range locs {
		byUser[l.UserID] = l
	}

	// An active caller shares this event with every participant.
	callerEvents := []string{eventID}
	if !active {
		if callerEvents, err = s.memberships.ActiveEventIDs(ctx, callerID); err != nil {
			return nil, fmt.Errorf("caller events: %w", err)
		}
	}

	out := make([]*domain.ParticipantLocation, 0, len(participants))
	for _, p := range participants {
		entry := &domain.ParticipantLocation{Participant: p}
		if loc, ok := byUser[p.UserID]; ok {
			ownerEvents := []string{eventID}
			if !active && p.UserID != callerID {
				if ownerEvents, err = s.memberships.ActiveEventIDs(ctx, p.UserID); err != nil {
					return nil, fmt.Errorf("owner events: %w", err)
				}
			}
			if policy.CanViewLocation(callerID, loc, callerEvents, ownerEvents) {
				entry.Location = loc
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
