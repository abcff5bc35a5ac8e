package services

import (
	"context"
	"testing"

	"conduit/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinService_CreatePin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.store.addProfile("Alice", "alice@example.com")
	bob := env.store.addProfile("Bob", "bob@example.com")
	eventID := env.createEvent(alice, "Trip", false)

	tests := []struct {
		name    string
		pin     *domain.Pin
		wantErr error
	}{
		{name: "blank title", pin: &domain.Pin{EventID: eventID, CreatorID: alice}, wantErr: domain.ErrInvalidInput},
		{name: "bad latitude", pin: &domain.Pin{EventID: eventID, CreatorID: alice, Title: "x", Latitude: -95}, wantErr: domain.ErrInvalidInput},
		{name: "bad color", pin: &domain.Pin{EventID: eventID, CreatorID: alice, Title: "x", Color: "red"}, wantErr: domain.ErrInvalidInput},
		{name: "bad type", pin: &domain.Pin{EventID: eventID, CreatorID: alice, Title: "x", PinType: "volcano"}, wantErr: domain.ErrInvalidInput},
		{name: "not a member", pin: &domain.Pin{EventID: eventID, CreatorID: bob, Title: "x"}, wantErr: domain.ErrNotMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, env.pins.CreatePin(ctx, tt.pin), tt.wantErr)
		})
	}

	pin := &domain.Pin{EventID: eventID, CreatorID: alice, Title: "Camp", Latitude: 46.5, Longitude: 7.9, IsPublic: true}
	require.NoError(t, env.pins.CreatePin(ctx, pin))
	assert.Equal(t, domain.PinTypeLocation, pin.PinType)
	assert.Equal(t, domain.DefaultPinColor, pin.Color)
	assert.Equal(t, domain.DefaultPinIcon, pin.Icon)
}

func TestPinService_VisibilityAndQueries(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.store.addProfile("Alice", "alice@example.com")
	bob := env.store.addProfile("Bob", "bob@example.com")
	carol := env.store.addProfile("Carol", "carol@example.com")
	eventID := env.createEvent(alice, "Trip", false)
	env.join(bob, eventID)

	mk := func(creator, title string, lat, lng float64, typ domain.PinType, public bool) *domain.Pin {
		p := &domain.Pin{EventID: eventID, CreatorID: creator, Title: title, Latitude: lat, Longitude: lng, PinType: typ, IsPublic: public}
		require.NoError(t, env.pins.CreatePin(ctx, p))
		return p
	}
	camp := mk(alice, "Base camp", 10, 10, domain.PinTypeMeetingPoint, true)
	mk(alice, "Secret spring", 11, 11, domain.PinTypeLandmark, false)
	mk(bob, "Dateline hut", 0, 179.5, domain.PinTypeLandmark, true)

	all, err := env.pins.ListEventPins(ctx, bob, eventID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2, "private pin of another user is hidden")

	all, err = env.pins.ListEventPins(ctx, alice, eventID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	landmark := domain.PinTypeLandmark
	landmarks, err := env.pins.ListEventPins(ctx, bob, eventID, &landmark)
	require.NoError(t, err)
	require.Len(t, landmarks, 1)
	assert.Equal(t, "Dateline hut", landmarks[0].Title)

	// Public event, but Carol is not a member: only her own pins would be visible.
	none, err := env.pins.ListEventPins(ctx, carol, eventID, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	inBox, err := env.pins.ListPinsInBounds(ctx, bob, eventID, domain.Bounds{North: 20, South: 5, East: 20, West: 5})
	require.NoError(t, err)
	require.Len(t, inBox, 1)
	assert.Equal(t, camp.ID, inBox[0].ID)

	wrapped, err := env.pins.ListPinsInBounds(ctx, bob, eventID, domain.Bounds{North: 5, South: -5, East: -170, West: 170})
	require.NoError(t, err)
	require.Len(t, wrapped, 1)
	assert.Equal(t, "Dateline hut", wrapped[0].Title)

	_, err = env.pins.ListPinsInBounds(ctx, bob, eventID, domain.Bounds{North: -10, South: 10})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	found, err := env.pins.SearchPins(ctx, bob, eventID, "CAMP")
	require.NoError(t, err)
	require.Len(t, found, 1)
	_, err = env.pins.SearchPins(ctx, bob, eventID, "  ")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.pins.GetPin(ctx, carol, camp.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPinService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.store.addProfile("Alice", "alice@example.com")
	bob := env.store.addProfile("Bob", "bob@example.com")
	eventID := env.createEvent(alice, "Trip", false)
	env.join(bob, eventID)

	pin := &domain.Pin{EventID: eventID, CreatorID: alice, Title: "Camp", Latitude: 1, Longitude: 1, IsPublic: true}
	require.NoError(t, env.pins.CreatePin(ctx, pin))

	color := "#00ff00"
	_, err := env.pins.UpdatePin(ctx, bob, pin.ID, domain.PinUpdate{Color: &color})
	require.ErrorIs(t, err, domain.ErrForbidden)

	bad := "green"
	_, err = env.pins.UpdatePin(ctx, alice, pin.ID, domain.PinUpdate{Color: &bad})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	updated, err := env.pins.UpdatePin(ctx, alice, pin.ID, domain.PinUpdate{Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", updated.Color)

	require.ErrorIs(t, env.pins.DeletePin(ctx, bob, pin.ID), domain.ErrForbidden)
	require.NoError(t, env.pins.DeletePin(ctx, alice, pin.ID))
	_, err = env.pins.GetPin(ctx, alice, pin.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
