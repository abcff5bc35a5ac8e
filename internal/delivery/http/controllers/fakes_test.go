package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"conduit/internal/delivery/http/helpers"
	"conduit/internal/delivery/http/middleware"
	"conduit/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testUserID  = "11111111-1111-1111-1111-111111111111"
	otherUserID = "22222222-2222-2222-2222-222222222222"
	testEventID = "33333333-3333-3333-3333-333333333333"
	testItemID  = "44444444-4444-4444-4444-444444444444"
)

// newRequest builds a request authenticated as userID (none when empty) with the given path values.
func newRequest(method, target, body, userID string, pathValues map[string]string) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, "http://test"+target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req = req.WithContext(middleware.SetUserID(req.Context(), userID))
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

// decodeEnvelope decodes the response envelope and, when dest is non-nil, its data.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) helpers.APIResponse {
	t.Helper()
	var raw struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	if dest != nil {
		require.Nil(t, raw.Error)
		require.NoError(t, json.Unmarshal(raw.Data, dest))
	}
	return helpers.APIResponse{Data: raw.Data, Error: raw.Error}
}

func requireErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) *helpers.APIError {
	t.Helper()
	require.Equal(t, status, rr.Code)
	env := decodeEnvelope(t, rr, nil)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
	return env.Error
}

type fakeAuthService struct {
	profile     *domain.Profile
	token       string
	ttl         time.Duration
	err         error
	lastName    string
	refreshedID string
}

func (f *fakeAuthService) Register(_ context.Context, email, _, fullName string) (*domain.Profile, string, error) {
	f.lastName = fullName
	if f.err != nil {
		return nil, "", f.err
	}
	return f.profile, f.token, nil
}

func (f *fakeAuthService) Login(_ context.Context, _, _ string) (string, *domain.Profile, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.profile, nil
}

func (f *fakeAuthService) Refresh(_ context.Context, userID string) (string, time.Duration, error) {
	f.refreshedID = userID
	if f.err != nil {
		return "", 0, f.err
	}
	return f.token, f.ttl, nil
}

type fakeUserService struct {
	domain.UserService
	profile    *domain.Profile
	profiles   []*domain.Profile
	err        error
	lastUpdate domain.ProfileUpdate
	lastLimit  int
	lastQuery  string
}

func (f *fakeUserService) GetByID(_ context.Context, _ string) (*domain.Profile, error) {
	return f.profile, f.err
}

func (f *fakeUserService) GetByEmail(_ context.Context, _ string) (*domain.Profile, error) {
	return f.profile, f.err
}

func (f *fakeUserService) UpdateProfile(_ context.Context, _, _ string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	f.lastUpdate = upd
	return f.profile, f.err
}

func (f *fakeUserService) Search(_ context.Context, _, query string, limit int) ([]*domain.Profile, error) {
	f.lastQuery, f.lastLimit = query, limit
	return f.profiles, f.err
}

type fakeEventService struct {
	domain.EventService
	event      *domain.Event
	events     []*domain.Event
	total      int
	err        error
	created    *domain.Event
	lastParams domain.PaginationParams
	lastUpdate domain.EventUpdate
}

func (f *fakeEventService) CreateEvent(_ context.Context, e *domain.Event) error {
	f.created = e
	if f.err == nil {
		e.ID = testEventID
		e.ParticipantCount = 1
	}
	return f.err
}

func (f *fakeEventService) GetEvent(_ context.Context, _, _ string) (*domain.Event, error) {
	return f.event, f.err
}

func (f *fakeEventService) ListVisibleEvents(_ context.Context, _ string, p domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastParams = p
	return f.events, f.total, f.err
}

func (f *fakeEventService) UpdateEvent(_ context.Context, _, _ string, upd domain.EventUpdate) (*domain.Event, error) {
	f.lastUpdate = upd
	return f.event, f.err
}

func (f *fakeEventService) CancelEvent(_ context.Context, _, _ string) (*domain.Event, error) {
	return f.event, f.err
}

func (f *fakeEventService) JoinEvent(_ context.Context, _, _ string) (*domain.Event, error) {
	return f.event, f.err
}

func (f *fakeEventService) LeaveEvent(_ context.Context, _, _ string) (*domain.Event, error) {
	return f.event, f.err
}

type fakeMessageService struct {
	domain.MessageService
	audience  []string
	messages  []*domain.Message
	err       error
	sent      *domain.Message
	lastLimit int
}

func (f *fakeMessageService) Send(_ context.Context, m *domain.Message) ([]string, error) {
	f.sent = m
	if f.err != nil {
		return nil, f.err
	}
	m.ID = "msg-1"
	return f.audience, nil
}

func (f *fakeMessageService) ListEventMessages(_ context.Context, _, _ string, limit int) ([]*domain.Message, error) {
	f.lastLimit = limit
	return f.messages, f.err
}

func (f *fakeMessageService) ListDirectMessages(_ context.Context, _, _ string, limit int) ([]*domain.Message, error) {
	f.lastLimit = limit
	return f.messages, f.err
}

type fakeRelay struct {
	msg      *domain.Message
	audience []string
}

func (f *fakeRelay) Deliver(msg *domain.Message, audience []string) {
	f.msg, f.audience = msg, audience
}

// fakeChat answers every socket with one frame and returns.
type fakeChat struct{}

func (fakeChat) Serve(_ context.Context, ws *websocket.Conn, userID string) {
	defer ws.Close()
	_ = ws.WriteJSON(map[string]string{"type": "connected", "user_id": userID})
}

type fakeLocationService struct {
	domain.LocationService
	loc     *domain.Location
	err     error
	updated *domain.Location
}

func (f *fakeLocationService) UpdateLocation(_ context.Context, loc *domain.Location) error {
	f.updated = loc
	return f.err
}

func (f *fakeLocationService) SetSharing(_ context.Context, _ string, shared bool) (*domain.Location, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Location{UserID: testUserID, IsShared: shared}, nil
}

func (f *fakeLocationService) GetUserLocation(_ context.Context, _, _ string) (*domain.Location, error) {
	return f.loc, f.err
}

type fakeVideoService struct {
	domain.VideoService
	call         *domain.VideoCall
	calls        []*domain.VideoCall
	participants []*domain.CallParticipant
	err          error
	started      *domain.VideoCall
	lastEventID  string
}

func (f *fakeVideoService) StartCall(_ context.Context, call *domain.VideoCall) error {
	f.started = call
	return f.err
}

func (f *fakeVideoService) GetCall(_ context.Context, _, _ string) (*domain.VideoCall, error) {
	return f.call, f.err
}

func (f *fakeVideoService) EndCall(_ context.Context, _, _ string) (*domain.VideoCall, error) {
	return f.call, f.err
}

func (f *fakeVideoService) ListEventCalls(_ context.Context, _, eventID string) ([]*domain.VideoCall, error) {
	f.lastEventID = eventID
	return f.calls, f.err
}

func (f *fakeVideoService) ListParticipants(_ context.Context, _, _ string) ([]*domain.CallParticipant, error) {
	return f.participants, f.err
}

type fakeRooms struct {
	endedCall string
	endedBy   string

	mu     sync.Mutex
	served string
}

func (f *fakeRooms) Serve(_ context.Context, ws *websocket.Conn, callID, _ string) {
	f.mu.Lock()
	f.served = callID
	f.mu.Unlock()
	_ = ws.Close()
}

func (f *fakeRooms) servedCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.served
}

func (f *fakeRooms) EndCall(callID, endedBy string) {
	f.endedCall, f.endedBy = callID, endedBy
}

type fakeAgendaService struct {
	domain.AgendaService
	items     []*domain.AgendaItem
	err       error
	lastRange domain.TimeRange
	deleted   string
}

func (f *fakeAgendaService) CreateItem(_ context.Context, item *domain.AgendaItem) error {
	return f.err
}

func (f *fakeAgendaService) Calendar(_ context.Context, _ string, r domain.TimeRange) ([]*domain.AgendaItem, error) {
	f.lastRange = r
	return f.items, f.err
}

func (f *fakeAgendaService) DeleteItem(_ context.Context, _, itemID string) error {
	f.deleted = itemID
	return f.err
}

type fakeInvitationService struct {
	domain.InvitationService
	inv        *domain.EventInvitation
	err        error
	lastStatus domain.InvitationStatus
}

func (f *fakeInvitationService) Invite(_ context.Context, inv *domain.EventInvitation) error {
	if f.err == nil {
		inv.Status = domain.InvitationPending
	}
	return f.err
}

func (f *fakeInvitationService) Respond(_ context.Context, _, _ string, status domain.InvitationStatus) (*domain.EventInvitation, error) {
	f.lastStatus = status
	return f.inv, f.err
}

type fakePinService struct {
	domain.PinService
	pins       []*domain.Pin
	err        error
	created    *domain.Pin
	lastBounds domain.Bounds
	lastType   *domain.PinType
}

func (f *fakePinService) CreatePin(_ context.Context, pin *domain.Pin) error {
	f.created = pin
	return f.err
}

func (f *fakePinService) ListEventPins(_ context.Context, _, _ string, pinType *domain.PinType) ([]*domain.Pin, error) {
	f.lastType = pinType
	return f.pins, f.err
}

func (f *fakePinService) ListPinsInBounds(_ context.Context, _, _ string, b domain.Bounds) ([]*domain.Pin, error) {
	f.lastBounds = b
	return f.pins, f.err
}

type fakeNotificationService struct {
	domain.NotificationService
	result       *domain.DispatchResult
	err          error
	registered   *domain.DeviceToken
	unregistered string
}

func (f *fakeNotificationService) RegisterToken(_ context.Context, tok *domain.DeviceToken) error {
	f.registered = tok
	return f.err
}

func (f *fakeNotificationService) UnregisterToken(_ context.Context, _, token string) error {
	f.unregistered = token
	return f.err
}

func (f *fakeNotificationService) SendTest(_ context.Context, _ string) (*domain.DispatchResult, error) {
	return f.result, f.err
}
