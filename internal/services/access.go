package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"conduit/internal/domain"
	"conduit/internal/policy"
)

// isActiveMember reports whether userID holds an active membership in eventID.
func isActiveMember(ctx context.Context, memberships domain.MembershipRepository, eventID, userID string) (bool, error) {
	m, err := memberships.Get(ctx, eventID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load membership: %w", err)
	}
	return m.IsActive, nil
}

// loadVisibleEvent loads an event the caller may see, together with the caller's
// membership state. Hidden events are reported as domain.ErrNotFound.
func loadVisibleEvent(ctx context.Context, events domain.EventRepository, memberships domain.MembershipRepository, callerID, eventID string) (*domain.Event, bool, error) {
	event, err := events.GetByID(ctx, eventID)
	if err != nil {
		return nil, false, err
	}
	active, err := isActiveMember(ctx, memberships, eventID, callerID)
	if err != nil {
		return nil, false, err
	}
	if !policy.CanViewEvent(event, active) {
		return nil, false, domain.ErrNotFound
	}
	return event, active, nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidInput}, args...)...)
}

func validCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return invalidf("latitude must be between -90 and 90")
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return invalidf("longitude must be between -180 and 180")
	}
	return nil
}

// clampLimit returns def for non-positive limits and caps the rest at maxLimit.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
