package services

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"conduit/internal/domain"
	"conduit/internal/policy"
)

const (
	maxPinTitleLen = 100
	maxPinIconLen  = 50
)

var pinColorRegexp = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type pinService struct {
	pins           domain.PinRepository
	events         domain.EventRepository
	memberships    domain.MembershipRepository
	contextTimeout time.Duration
	now            func() time.Time
}

// NewPinService creates a PinService.
func NewPinService(
	pins domain.PinRepository,
	events domain.EventRepository,
	memberships domain.MembershipRepository,
	timeout time.Duration,
) domain.PinService {
	return &pinService{
		pins:           pins,
		events:         events,
		memberships:    memberships,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func validPinType(t domain.PinType) bool {
	switch t {
	case domain.PinTypeLocation, domain.PinTypeMeetingPoint, domain.PinTypeLandmark, domain.PinTypeCustom:
		return true
	}
	return false
}

func validatePinTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if n := utf8.RuneCountInString(title); n == 0 || n > maxPinTitleLen {
		return "", invalidf("title must be 1 to %d characters", maxPinTitleLen)
	}
	return title, nil
}

func validatePinStyle(pinType *domain.PinType, color, icon *string) error {
	if pinType != nil && !validPinType(*pinType) {
		return invalidf("unknown pin_type %q", *pinType)
	}
	if color != nil && !pinColorRegexp.MatchString(*color) {
		return invalidf("color must look like #RRGGBB")
	}
	if icon != nil && utf8.RuneCountInString(*icon) > maxPinIconLen {
		return invalidf("icon must be at most %d characters", maxPinIconLen)
	}
	return nil
}

func (s *pinService) CreatePin(ctx context.Context, pin *domain.Pin) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	pin.ApplyDefaults()
	title, err := validatePinTitle(pin.Title)
	if err != nil {
		return err
	}
	pin.Title = title
	if err := validCoordinates(pin.Latitude, pin.Longitude); err != nil {
		return err
	}
	if err := validatePinStyle(&pin.PinType, &pin.Color, &pin.Icon); err != nil {
		return err
	}

	_, active, err := loadVisibleEvent(ctx, s.events, s.memberships, pin.CreatorID, pin.EventID)
	if err != nil {
		return err
	}
	if !policy.CanCreatePin(pin.CreatorID, pin, active) {
		return domain.ErrNotMember
	}

	now := s.now()
	pin.CreatedAt = now
	pin.UpdatedAt = now
	if err := s.pins.Create(ctx, pin); err != nil {
		return fmt.Errorf("create pin: %w", err)
	}
	return nil
}

func (s *pinService) GetPin(ctx context.Context, callerID, pinID string) (*domain.Pin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.visiblePin(ctx, callerID, pinID)
}

func (s *pinService) visiblePin(ctx context.Context, callerID, pinID string) (*domain.Pin, error) {
	pin, err := s.pins.GetByID(ctx, pinID)
	if err != nil {
		return nil, err
	}
	_, active, err := loadVisibleEvent(ctx, s.events, s.memberships, callerID, pin.EventID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewPin(callerID, pin, active) {
		return nil, domain.ErrNotFound
	}
	return pin, nil
}

// visibleEventPins loads the event for the caller and drops pins the caller may not see.
func (s *pinService) visibleEventPins(ctx context.Context, callerID, eventID string, list func() ([]*domain.Pin, error)) ([]*domain.Pin, error) {
	_, active, err := loadVisibleEvent(ctx, s.events, s.memberships, callerID, eventID)
	if err != nil {
		return nil, err
	}
	pins, err := list()
	if err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	return slices.DeleteFunc(pins, func(p *domain.Pin) bool {
		return !policy.CanViewPin(callerID, p, active)
	}), nil
}

func (s *pinService) ListEventPins(ctx context.Context, callerID, eventID string, pinType *domain.PinType) ([]*domain.Pin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if pinType != nil && !validPinType(*pinType) {
		return nil, invalidf("unknown pin_type %q", *pinType)
	}
	return s.visibleEventPins(ctx, callerID, eventID, func() ([]*domain.Pin, error) {
		return s.pins.ListByEvent(ctx, eventID, pinType)
	})
}

// ListPinsInBounds accepts boxes that cross the antimeridian (West > East).
func (s *pinService) ListPinsInBounds(ctx context.Context, callerID, eventID string, b domain.Bounds) ([]*domain.Pin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validCoordinates(b.North, b.East); err != nil {
		return nil, err
	}
	if err := validCoordinates(b.South, b.West); err != nil {
		return nil, err
	}
	if b.South > b.North {
		return nil, invalidf("south must not be greater than north")
	}
	return s.visibleEventPins(ctx, callerID, eventID, func() ([]*domain.Pin, error) {
		return s.pins.ListInBounds(ctx, eventID, b)
	})
}

func (s *pinService) SearchPins(ctx context.Context, callerID, eventID, query string) ([]*domain.Pin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalidf("query is required")
	}
	return s.visibleEventPins(ctx, callerID, eventID, func() ([]*domain.Pin, error) {
		return s.pins.Search(ctx, eventID, query)
	})
}

func (s *pinService) UpdatePin(ctx context.Context, callerID, pinID string, upd domain.PinUpdate) (*domain.Pin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	pin, err := s.visiblePin(ctx, callerID, pinID)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutatePin(callerID, pin) {
		return nil, domain.ErrForbidden
	}

	if upd.Title != nil {
		title, err := validatePinTitle(*upd.Title)
		if err != nil {
			return nil, err
		}
		upd.Title = &title
	}
	lat, lng := pin.Latitude, pin.Longitude
	if upd.Latitude != nil {
		lat = *upd.Latitude
	}
	if upd.Longitude != nil {
		lng = *upd.Longitude
	}
	if err := validCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if err := validatePinStyle(upd.PinType, upd.Color, upd.Icon); err != nil {
		return nil, err
	}

	updated, err := s.pins.Update(ctx, pinID, upd)
	if err != nil {
		return nil, fmt.Errorf("update pin: %w", err)
	}
	return updated, nil
}

func (s *pinService) DeletePin(ctx context.Context, callerID, pinID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	pin, err := s.visiblePin(ctx, callerID, pinID)
	if err != nil {
		return err
	}
	if !policy.CanMutatePin(callerID, pin) {
		return domain.ErrForbidden
	}
	return s.pins.Delete(ctx, pinID)
}
