package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"conduit/internal/domain"
	"conduit/internal/policy"
)

const maxAgendaTitleLen = 200

type agendaService struct {
	agenda         domain.AgendaRepository
	events         domain.EventRepository
	memberships    domain.MembershipRepository
	pins           domain.PinRepository
	contextTimeout time.Duration
	now            func() time.Time
}

// NewAgendaService creates an AgendaService. Agenda items share the visibility of their event.
func NewAgendaService(
	agenda domain.AgendaRepository,
	events domain.EventRepository,
	memberships domain.MembershipRepository,
	pins domain.PinRepository,
	timeout time.Duration,
) domain.AgendaService {
	return &agendaService{
		agenda:         agenda,
		events:         events,
		memberships:    memberships,
		pins:           pins,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func validateAgendaTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if n := utf8.RuneCountInString(title); n == 0 || n > maxAgendaTitleLen {
		return "", invalidf("title must be 1 to %d characters", maxAgendaTitleLen)
	}
	return title, nil
}

func validateTimeRange(r domain.TimeRange) error {
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return invalidf("to must not be before from")
	}
	return nil
}

// checkPin ensures the pin exists and belongs to eventID.
func (s *agendaService) checkPin(ctx context.Context, eventID string, pinID *string) error {
	if pinID == nil {
		return nil
	}
	pin, err := s.pins.GetByID(ctx, *pinID)
	if err != nil {
		return invalidf("pin %s not found", *pinID)
	}
	if pin.EventID != eventID {
		return invalidf("pin belongs to another event")
	}
	return nil
}

func (s *agendaService) CreateItem(ctx context.Context, item *domain.AgendaItem) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	title, err := validateAgendaTitle(item.Title)
	if err != nil {
		return err
	}
	item.Title = title
	if item.StartTime.IsZero() {
		return invalidf("start_time is required")
	}
	if item.EndTime != nil && item.EndTime.Before(item.StartTime) {
		return invalidf("end_time must not be before start_time")
	}

	_, active, err := loadVisibleEvent(ctx, s.events, s.memberships, item.CreatorID, item.EventID)
	if err != nil {
		return err
	}
	if !policy.CanCreateAgendaItem(item.CreatorID, item, active) {
		return domain.ErrNotMember
	}
	if err := s.checkPin(ctx, item.EventID, item.PinID); err != nil {
		return err
	}

	now := s.now()
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := s.agenda.Create(ctx, item); err != nil {
		return fmt.Errorf("create agenda item: %w", err)
	}
	return nil
}

func (s *agendaService) GetItem(ctx context.Context, callerID, itemID string) (*domain.AgendaItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.visibleItem(ctx, callerID, itemID)
}

func (s *agendaService) visibleItem(ctx context.Context, callerID, itemID string) (*domain.AgendaItem, error) {
	item, err := s.agenda.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	event, active, err := loadVisibleEvent(ctx, s.events, s.memberships, callerID, item.EventID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewAgendaItem(event, active) {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *agendaService) ListEventItems(ctx context.Context, callerID, eventID string, r domain.TimeRange) ([]*domain.AgendaItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateTimeRange(r); err != nil {
		return nil, err
	}
	if _, _, err := loadVisibleEvent(ctx, s.events, s.memberships, callerID, eventID); err != nil {
		return nil, err
	}
	return s.agenda.ListByEvents(ctx, []string{eventID}, r)
}

// Calendar lists the agenda items of every event the caller is active in.
func (s *agendaService) Calendar(ctx context.Context, callerID string, r domain.TimeRange) ([]*domain.AgendaItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateTimeRange(r); err != nil {
		return nil, err
	}
	eventIDs, err := s.memberships.ActiveEventIDs(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("caller events: %w", err)
	}
	if len(eventIDs) == 0 {
		return []*domain.AgendaItem{}, nil
	}
	return s.agenda.ListByEvents(ctx, eventIDs, r)
}

func (s *agendaService) UpdateItem(ctx context.Context, callerID, itemID string, upd domain.AgendaItemUpdate) (*domain.AgendaItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	item, err := s.visibleItem(ctx, callerID, itemID)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutateAgendaItem(callerID, item) {
		return nil, domain.ErrForbidden
	}

	if upd.Title != nil {
		title, err := validateAgendaTitle(*upd.Title)
		if err != nil {
			return nil, err
		}
		upd.Title = &title
	}
	start := item.StartTime
	if upd.StartTime != nil {
		start = *upd.StartTime
	}
	end := item.EndTime
	if upd.EndTime != nil {
		end = upd.EndTime
	}
	if end != nil && end.Before(start) {
		return nil, invalidf("end_time must not be before start_time")
	}
	if err := s.checkPin(ctx, item.EventID, upd.PinID); err != nil {
		return nil, err
	}

	updated, err := s.agenda.Update(ctx, itemID, upd)
	if err != nil {
		return nil, fmt.Errorf("update agenda item: %w", err)
	}
	return updated, nil
}

func (s *agendaService) DeleteItem(ctx context.Context, callerID, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	item, err := s.visibleItem(ctx, callerID, itemID)
	if err != nil {
		return err
	}
	if !policy.CanMutateAgendaItem(callerID, item) {
		return domain.ErrForbidden
	}
	return s.agenda.Delete(ctx, itemID)
}
