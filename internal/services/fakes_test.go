package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"conduit/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testTimeout = 5 * time.Second

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func strPtr(s string) *string { return &s }

func clone[T any](v *T) *T {
	c := *v
	return &c
}

// memStore is an in-memory backing store shared by the fake repositories below.
// Membership transitions apply domain.ParticipantDelta to the event counter the
// way the Postgres repository does inside its transaction.
type memStore struct {
	mu  sync.Mutex
	seq int

	profiles    map[string]*domain.Profile
	events      map[string]*domain.Event
	members     map[string]*domain.Membership
	messages    map[string]*domain.Message
	locations   map[string]*domain.Location
	agenda      map[string]*domain.AgendaItem
	calls       map[string]*domain.VideoCall
	invitations map[string]*domain.EventInvitation
	pins        map[string]*domain.Pin
	tokens      map[string]*domain.DeviceToken
}

func newMemStore() *memStore {
	return &memStore{
		profiles:    make(map[string]*domain.Profile),
		events:      make(map[string]*domain.Event),
		members:     make(map[string]*domain.Membership),
		messages:    make(map[string]*domain.Message),
		locations:   make(map[string]*domain.Location),
		agenda:      make(map[string]*domain.AgendaItem),
		calls:       make(map[string]*domain.VideoCall),
		invitations: make(map[string]*domain.EventInvitation),
		pins:        make(map[string]*domain.Pin),
		tokens:      make(map[string]*domain.DeviceToken),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func memberKey(eventID, userID string) string { return eventID + "/" + userID }

// addProfile seeds a profile and returns its id.
func (s *memStore) addProfile(name, email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := domain.NewProfile(email, name, testNow)
	p.ID = s.nextID("user")
	s.profiles[p.ID] = p
	return p.ID
}

// applyMembershipLocked sets the membership state and adjusts the event counter.
func (s *memStore) applyMembershipLocked(eventID, userID string, role domain.MembershipRole, active bool) *domain.Membership {
	key := memberKey(eventID, userID)
	var prev *bool
	m, ok := s.members[key]
	if ok {
		was := m.IsActive
		prev = &was
		m.IsActive = active
		if active {
			m.Role = role
			m.JoinedAt = testNow
		}
	} else {
		m = &domain.Membership{UserID: userID, EventID: eventID, Role: role, JoinedAt: testNow, IsActive: active}
		s.members[key] = m
	}
	if e, ok := s.events[eventID]; ok {
		e.ParticipantCount += domain.ParticipantDelta(prev, active)
	}
	return clone(m)
}

func (s *memStore) activeCount(eventID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.members {
		if m.EventID == eventID && m.IsActive {
			n++
		}
	}
	return n
}

type fakeProfiles struct{ *memStore }

func (f fakeProfiles) Create(_ context.Context, p *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.profiles {
		if existing.Email == p.Email {
			return domain.ErrDuplicateEmail
		}
	}
	p.ID = f.nextID("user")
	f.profiles[p.ID] = clone(p)
	return nil
}

func (f fakeProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[id]; ok {
		return clone(p), nil
	}
	return nil, domain.ErrNotFound
}

func (f fakeProfiles) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Email == email {
			return clone(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f fakeProfiles) Update(_ context.Context, id string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.FullName != nil {
		p.FullName = *upd.FullName
	}
	if upd.AvatarURL != nil {
		p.AvatarURL = upd.AvatarURL
	}
	if upd.PhoneNumber != nil {
		p.PhoneNumber = upd.PhoneNumber
	}
	return clone(p), nil
}

func (f fakeProfiles) Search(_ context.Context, query, excludeID string, limit int) ([]*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := strings.ToLower(query)
	var out []*domain.Profile
	for _, p := range f.profiles {
		if p.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(p.FullName), q) || strings.Contains(p.Email, q) {
			out = append(out, clone(p))
		}
	}
	slices.SortFunc(out, func(a, b *domain.Profile) int { return strings.Compare(a.FullName, b.FullName) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeProfiles) TouchLastSeen(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.LastSeen = &at
	return nil
}

type fakeEvents struct{ *memStore }

func (f fakeEvents) Create(_ context.Context, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = f.nextID("ev")
	e.ParticipantCount = 0
	f.events[e.ID] = clone(e)
	f.applyMembershipLocked(e.ID, e.CreatorID, domain.MembershipRoleCreator, true)
	e.ParticipantCount = 1
	return nil
}

func (f fakeEvents) GetByID(_ context.Context, id string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.events[id]; ok {
		return clone(e), nil
	}
	return nil, domain.ErrNotFound
}

func (f fakeEvents) Update(_ context.Context, id string, upd domain.EventUpdate) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.Description != nil {
		e.Description = upd.Description
	}
	if upd.StartDate != nil {
		e.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		e.EndDate = upd.EndDate
	}
	if upd.IsPrivate != nil {
		e.IsPrivate = *upd.IsPrivate
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
	return clone(e), nil
}

func (f fakeEvents) ListVisible(_ context.Context, callerID string, params domain.PaginationParams) ([]*domain.Event, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*domain.Event
	for _, e := range f.events {
		m := f.members[memberKey(e.ID, callerID)]
		if !e.IsPrivate || (m != nil && m.IsActive) {
			all = append(all, clone(e))
		}
	}
	slices.SortFunc(all, func(a, b *domain.Event) int { return strings.Compare(a.ID, b.ID) })
	total := len(all)
	start := min(params.Offset(), total)
	end := min(start+params.Limit(), total)
	return all[start:end], total, nil
}

func (f fakeEvents) ListByMember(_ context.Context, userID string) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Event
	for _, m := range f.members {
		if m.UserID == userID && m.IsActive {
			out = append(out, clone(f.events[m.EventID]))
		}
	}
	slices.SortFunc(out, func(a, b *domain.Event) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (f fakeEvents) Recount(_ context.Context, id string) (int, error) {
	n := f.activeCount(id)
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	e.ParticipantCount = n
	return n, nil
}

type fakeMemberships struct{ *memStore }

func (f fakeMemberships) Join(_ context.Context, eventID, userID string, role domain.MembershipRole) (*domain.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[eventID]; !ok {
		return nil, domain.ErrNotFound
	}
	if m, ok := f.members[memberKey(eventID, userID)]; ok && m.IsActive {
		return nil, domain.ErrAlreadyMember
	}
	return f.applyMembershipLocked(eventID, userID, role, true), nil
}

func (f fakeMemberships) Leave(_ context.Context, eventID, userID string) (*domain.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[memberKey(eventID, userID)]
	if !ok || !m.IsActive {
		return nil, domain.ErrNotMember
	}
	return f.applyMembershipLocked(eventID, userID, m.Role, false), nil
}

func (f fakeMemberships) Get(_ context.Context, eventID, userID string) (*domain.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.members[memberKey(eventID, userID)]; ok {
		return clone(m), nil
	}
	return nil, domain.ErrNotFound
}

func (f fakeMemberships) ActiveEventIDs(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []string{}
	for _, m := range f.members {
		if m.UserID == userID && m.IsActive {
			ids = append(ids, m.EventID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (f fakeMemberships) ListActiveUserIDs(_ context.Context, eventID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []string{}
	for _, m := range f.members {
		if m.EventID == eventID && m.IsActive {
			ids = append(ids, m.UserID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (f fakeMemberships) ListParticipants(_ context.Context, eventID string) ([]*domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.Participant{}
	for _, m := range f.members {
		if m.EventID != eventID || !m.IsActive {
			continue
		}
		p := &domain.Participant{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt}
		if prof, ok := f.profiles[m.UserID]; ok {
			p.FullName = prof.FullName
			p.Email = prof.Email
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *domain.Participant) int { return strings.Compare(a.UserID, b.UserID) })
	return out, nil
}

type fakeMessages struct{ *memStore }

func (f fakeMessages) Create(_ context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = f.nextID("msg")
	f.messages[m.ID] = clone(m)
	return nil
}

func (f fakeMessages) GetByID(_ context.Context, id string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[id]; ok {
		return clone(m), nil
	}
	return nil, domain.ErrNotFound
}

func (f fakeMessages) list(keep func(*domain.Message) bool, limit int) []*domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Message
	for _, m := range f.messages {
		if keep(m) {
			out = append(out, clone(m))
		}
	}
	slices.SortFunc(out, func(a, b *domain.Message) int { return strings.Compare(a.ID, b.ID) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (f fakeMessages) ListByEvent(_ context.Context, eventID string, limit int) ([]*domain.Message, error) {
	return f.list(func(m *domain.Message) bool { return m.EventID != nil && *m.EventID == eventID }, limit), nil
}

func (f fakeMessages) ListDirect(_ context.Context, a, b string, limit int) ([]*domain.Message, error) {
	return f.list(func(m *domain.Message) bool {
		if m.RecipientID == nil {
			return false
		}
		r := *m.RecipientID
		return (m.SenderID == a && r == b) || (m.SenderID == b && r == a)
	}, limit), nil
}

func (f fakeMessages) MarkRead(_ context.Context, id string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	m.IsRead = true
	return clone(m), nil
}

type fakeLocations struct{ *memStore }

func (f fakeLocations) Upsert(_ context.Context, l *domain.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.locations[l.UserID]; ok {
		l.IsShared = existing.IsShared
	}
	f.locations[l.UserID] = clone(l)
	return nil
}

func (f fakeLocations) GetByUserID(_ context.Context, userID string) (*domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.locations[userID]; ok {
		return clone(l), nil
	}
	return nil, domain.ErrNotFound
}

func (f fakeLocations) SetSharing(_ context.Context, userID string, shared bool) (*domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locations[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	l.IsShared = shared
	return clone(l), nil
}

func (f fakeLocations) ListByUserIDs(_ context.Context, userIDs []string) ([]*domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Location
	for _, id := range userIDs {
		if l, ok := f.locations[id]; ok {
			out = append(out, clone(l))
		}
	}
	return out, nil
}

type fakeAgenda struct{ *memStore }

func (f fakeAgenda) Create(_ context.Context, item *domain.AgendaItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.nextID("item")
	f.agenda[item.ID] = clone(item)
	return nil
}

func (f fakeAgenda) GetByID(_ context.Context, id string) (*domain.AgendaItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item, ok := f.agenda[id]; ok {
		return clone(item), nil
	}
	return nil, domain.ErrNotFound
}

func (f fakeAgenda) ListByEvents(_ context.Context, eventIDs []string, r domain.TimeRange) ([]*domain.AgendaItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.AgendaItem{}
	for _, item := range f.agenda {
		if !slices.Contains(eventIDs, item.EventID) {
			continue
		}
		if r.From != nil && item.StartTime.Before(*r.From) {
			continue
		}
		if r.To != nil && item.StartTime.After(*r.To) {
			continue
		}
		out = append(out, clone(item))
	}
	slices.SortFunc(out, func(a, b *domain.AgendaItem) int { return a.StartTime.Compare(b.StartTime) })
	return out, nil
}

func (f fakeAgenda) Update(_ context.Context, id string, upd domain.AgendaItemUpdate) (*domain.AgendaItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.agenda[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Title != nil {
		item.Title = *upd.Title
	}
	if upd.StartTime != nil {
		item.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		item.EndTime = upd.EndTime
	}
	if upd.PinID != nil {
		item.PinID = upd.PinID
	}
	return clone(item), nil
}

func (f fakeAgenda) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.agenda[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.agenda, id)
	return nil
}

type fakeCalls struct{ *memStore }

func cloneCall(c *domain.VideoCall) *domain.VideoCall {
	out := clone(c)
	out.Participants = slices.Clone(c.Participants)
	return out
}

func (f fakeCalls) Create(_ context.Context, c *domain.VideoCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID("call")
	f.calls[c.ID] = cloneCall(c)
	return nil
}

func (f fakeCalls) GetByID(_ context.Context, id string) (*domain.VideoCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.calls[id]; ok {
		return cloneCall(c), nil
	}
	return nil, domain.ErrNotFound
}

func (f fakeCalls) GetActiveByEvent(_ context.Context, eventID string) (*domain.VideoCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.EventID != nil && *c.EventID == eventID && c.IsActive {
			return cloneCall(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f fakeCalls) filter(keep func(*domain.VideoCall) bool) []*domain.VideoCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.VideoCall{}
	for _, c := range f.calls {
		if keep(c) {
			out = append(out, cloneCall(c))
		}
	}
	slices.SortFunc(out, func(a, b *domain.VideoCall) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (f fakeCalls) ListActiveForUser(_ context.Context, userID string) ([]*domain.VideoCall, error) {
	return f.filter(func(c *domain.VideoCall) bool {
		return c.IsActive && (c.CreatorID == userID || c.HasParticipant(userID))
	}), nil
}

func (f fakeCalls) ListByEvent(_ context.Context, eventID string) ([]*domain.VideoCall, error) {
	return f.filter(func(c *domain.VideoCall) bool { return c.EventID != nil && *c.EventID == eventID }), nil
}

func (f fakeCalls) mutate(id string, fn func(c *domain.VideoCall)) (*domain.VideoCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !c.IsActive {
		return nil, domain.ErrCallEnded
	}
	fn(c)
	return cloneCall(c), nil
}

func (f fakeCalls) AddParticipant(_ context.Context, id, userID string) (*domain.VideoCall, error) {
	return f.mutate(id, func(c *domain.VideoCall) {
		if !c.HasParticipant(userID) {
			c.Participants = append(c.Participants, userID)
		}
	})
}

func (f fakeCalls) RemoveParticipant(_ context.Context, id, userID string) (*domain.VideoCall, error) {
	return f.mutate(id, func(c *domain.VideoCall) {
		c.Participants = slices.DeleteFunc(c.Participants, func(p string) bool { return p == userID })
	})
}

func (f fakeCalls) End(_ context.Context, id string, at time.Time) (*domain.VideoCall, error) {
	return f.mutate(id, func(c *domain.VideoCall) {
		c.IsActive = false
		c.EndedAt = &at
	})
}

type fakeInvitations struct{ *memStore }

func (f fakeInvitations) Create(_ context.Context, inv *domain.EventInvitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.invitations {
		if existing.EventID == inv.EventID && existing.InviteeID == inv.InviteeID {
			return domain.ErrDuplicateInvitation
		}
	}
	inv.ID = f.nextID("inv")
	f.invitations[inv.ID] = clone(inv)
	return nil
}

func (f fakeInvitations) GetByID(_ context.Context, id string) (*domain.EventInvitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv, ok := f.invitations[id]; ok {
		return clone(inv), nil
	}
	return nil, domain.ErrNotFound
}

func (f fakeInvitations) filter(keep func(*domain.EventInvitation) bool) []*domain.EventInvitation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.EventInvitation{}
	for _, inv := range f.invitations {
		if keep(inv) {
			out = append(out, clone(inv))
		}
	}
	slices.SortFunc(out, func(a, b *domain.EventInvitation) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (f fakeInvitations) ListByEventID(_ context.Context, eventID string) ([]*domain.EventInvitation, error) {
	return f.filter(func(inv *domain.EventInvitation) bool { return inv.EventID == eventID }), nil
}

func (f fakeInvitations) ListPendingForInvitee(_ context.Context, inviteeID string) ([]*domain.EventInvitation, error) {
	return f.filter(func(inv *domain.EventInvitation) bool {
		return inv.InviteeID == inviteeID && inv.Status == domain.InvitationPending
	}), nil
}

func (f fakeInvitations) SaveResponse(_ context.Context, inv *domain.EventInvitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.invitations[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != domain.InvitationPending {
		return domain.ErrInvitationResponded
	}
	stored.Status = inv.Status
	stored.RespondedAt = inv.RespondedAt
	if inv.Status == domain.InvitationAccepted {
		if m, ok := f.members[memberKey(inv.EventID, inv.InviteeID)]; !ok || !m.IsActive {
			f.applyMembershipLocked(inv.EventID, inv.InviteeID, domain.MembershipRoleParticipant, true)
		}
	}
	return nil
}

type fakePins struct{ *memStore }

func (f fakePins) Create(_ context.Context, p *domain.Pin) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.nextID("pin")
	f.pins[p.ID] = clone(p)
	return nil
}

func (f fakePins) GetByID(_ context.Context, id string) (*domain.Pin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pins[id]; ok {
		return clone(p), nil
	}
	return nil, domain.ErrNotFound
}

func (f fakePins) filter(eventID string, keep func(*domain.Pin) bool) []*domain.Pin {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.Pin{}
	for _, p := range f.pins {
		if p.EventID == eventID && keep(p) {
			out = append(out, clone(p))
		}
	}
	slices.SortFunc(out, func(a, b *domain.Pin) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (f fakePins) ListByEvent(_ context.Context, eventID string, pinType *domain.PinType) ([]*domain.Pin, error) {
	return f.filter(eventID, func(p *domain.Pin) bool { return pinType == nil || p.PinType == *pinType }), nil
}

func (f fakePins) ListInBounds(_ context.Context, eventID string, b domain.Bounds) ([]*domain.Pin, error) {
	return f.filter(eventID, func(p *domain.Pin) bool {
		if p.Latitude < b.South || p.Latitude > b.North {
			return false
		}
		if b.West <= b.East {
			return p.Longitude >= b.West && p.Longitude <= b.East
		}
		return p.Longitude >= b.West || p.Longitude <= b.East
	}), nil
}

func (f fakePins) Search(_ context.Context, eventID, query string) ([]*domain.Pin, error) {
	q := strings.ToLower(query)
	return f.filter(eventID, func(p *domain.Pin) bool {
		desc := ""
		if p.Description != nil {
			desc = *p.Description
		}
		return strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(desc), q)
	}), nil
}

func (f fakePins) Update(_ context.Context, id string, upd domain.PinUpdate) (*domain.Pin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Latitude != nil {
		p.Latitude = *upd.Latitude
	}
	if upd.Longitude != nil {
		p.Longitude = *upd.Longitude
	}
	if upd.Color != nil {
		p.Color = *upd.Color
	}
	if upd.IsPublic != nil {
		p.IsPublic = *upd.IsPublic
	}
	return clone(p), nil
}

func (f fakePins) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pins[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.pins, id)
	return nil
}

type fakeTokens struct{ *memStore }

func (f fakeTokens) Upsert(_ context.Context, t *domain.DeviceToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.tokens {
		if existing.Token == t.Token {
			t.ID = existing.ID
			t.CreatedAt = existing.CreatedAt
			f.tokens[t.ID] = clone(t)
			return nil
		}
	}
	t.ID = f.nextID("tok")
	f.tokens[t.ID] = clone(t)
	return nil
}

func (f fakeTokens) Deactivate(_ context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Token == token && t.UserID == userID && t.IsActive {
			t.IsActive = false
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f fakeTokens) ListActiveByUser(_ context.Context, userID string) ([]*domain.DeviceToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.DeviceToken{}
	for _, t := range f.tokens {
		if t.UserID == userID && t.IsActive {
			out = append(out, clone(t))
		}
	}
	slices.SortFunc(out, func(a, b *domain.DeviceToken) int { return strings.Compare(a.Token, b.Token) })
	return out, nil
}

// fakeNotifier records NotifyUser calls; sent receives one value per call.
type fakeNotifier struct {
	mu    sync.Mutex
	calls []notified
	err   error
	sent  chan notified
}

type notified struct {
	userID string
	n      domain.PushNotification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan notified, 16)}
}

func (f *fakeNotifier) RegisterToken(context.Context, *domain.DeviceToken) error { return nil }

func (f *fakeNotifier) UnregisterToken(context.Context, string, string) error { return nil }

func (f *fakeNotifier) NotifyUser(_ context.Context, userID string, n domain.PushNotification) (*domain.DispatchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, notified{userID: userID, n: n})
	err := f.err
	f.mu.Unlock()
	f.sent <- notified{userID: userID, n: n}
	if err != nil {
		return nil, err
	}
	return &domain.DispatchResult{Sent: 1}, nil
}

func (f *fakeNotifier) SendTest(ctx context.Context, userID string) (*domain.DispatchResult, error) {
	return f.NotifyUser(ctx, userID, domain.PushNotification{Title: "test"})
}

// fakeEmails records the emails it was asked to send.
type fakeEmails struct {
	mu          sync.Mutex
	welcome     []*domain.WelcomeEmailData
	invitations []*domain.EventInvitationEmailData
	err         error
}

func (f *fakeEmails) SendWelcome(_ context.Context, data *domain.WelcomeEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcome = append(f.welcome, data)
	return f.err
}

func (f *fakeEmails) SendEventInvitation(_ context.Context, data *domain.EventInvitationEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invitations = append(f.invitations, data)
	return f.err
}

var errBoom = errors.New("boom")

// testEnv wires every service over one memStore.
type testEnv struct {
	store    *memStore
	notifier *fakeNotifier
	emails   *fakeEmails
	presence *fakePresence

	events      domain.EventService
	messages    domain.MessageService
	locations   domain.LocationService
	agenda      domain.AgendaService
	pins        domain.PinService
	video       domain.VideoService
	invitations domain.InvitationService
	users       domain.UserService
}

type fakePresence struct{ online map[string]bool }

func (f *fakePresence) IsOnline(callID, userID string) bool {
	return f.online[callID+"/"+userID]
}

func newTestEnv() *testEnv {
	st := newMemStore()
	env := &testEnv{
		store:    st,
		notifier: newFakeNotifier(),
		emails:   &fakeEmails{},
		presence: &fakePresence{online: map[string]bool{}},
	}
	logger := discardLogger()
	profiles, events, members, calls := fakeProfiles{st}, fakeEvents{st}, fakeMemberships{st}, fakeCalls{st}

	ev := NewEventService(events, members, calls, testTimeout, logger).(*eventService)
	ev.now = fixedNow
	msg := NewMessageService(fakeMessages{st}, members, profiles, env.notifier, testTimeout, logger).(*messageService)
	msg.now = fixedNow
	loc := NewLocationService(fakeLocations{st}, events, members, testTimeout).(*locationService)
	loc.now = fixedNow
	ag := NewAgendaService(fakeAgenda{st}, events, members, fakePins{st}, testTimeout).(*agendaService)
	ag.now = fixedNow
	pin := NewPinService(fakePins{st}, events, members, testTimeout).(*pinService)
	pin.now = fixedNow
	vid := NewVideoService(calls, members, profiles, env.notifier, env.presence, testTimeout, logger).(*videoService)
	vid.now = fixedNow
	inv := NewInvitationService(fakeInvitations{st}, events, members, profiles, calls, env.emails, "Conduit", testTimeout, logger).(*invitationService)
	inv.now = fixedNow

	env.events, env.messages, env.locations, env.agenda = ev, msg, loc, ag
	env.pins, env.video, env.invitations = pin, vid, inv
	env.users = NewUserService(profiles, testTimeout)
	return env
}

// createEvent creates an event owned by creatorID and returns its id.
func (env *testEnv) createEvent(creatorID, title string, private bool) string {
	e := domain.NewEvent(title, creatorID, testNow.Add(24*time.Hour), private, testNow)
	if err := env.events.CreateEvent(context.Background(), e); err != nil {
		panic(err)
	}
	return e.ID
}

func (env *testEnv) join(userID, eventID string) {
	if _, err := env.events.JoinEvent(context.Background(), userID, eventID); err != nil {
		panic(err)
	}
}
