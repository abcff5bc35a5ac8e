package services

import (
	"context"
	"testing"

	"conduit/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvitationService_Invite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.store.addProfile("Alice", "alice@example.com")
	bob := env.store.addProfile("Bob", "bob@example.com")
	carol := env.store.addProfile("Carol", "carol@example.com")
	eventID := env.createEvent(alice, "Wedding", true)

	tests := []struct {
		name    string
		inv     *domain.EventInvitation
		wantErr error
	}{
		{name: "self", inv: &domain.EventInvitation{EventID: eventID, InviterID: alice, InviteeID: alice}, wantErr: domain.ErrInvalidInput},
		{name: "hidden event", inv: &domain.EventInvitation{EventID: eventID, InviterID: carol, InviteeID: bob}, wantErr: domain.ErrNotFound},
		{name: "unknown invitee", inv: &domain.EventInvitation{EventID: eventID, InviterID: alice, InviteeID: "user-404"}, wantErr: domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, env.invitations.Invite(ctx, tt.inv), tt.wantErr)
		})
	}

	inv := &domain.EventInvitation{EventID: eventID, InviterID: alice, InviteeID: bob, Message: strPtr("  come!  ")}
	require.NoError(t, env.invitations.Invite(ctx, inv))
	assert.Equal(t, domain.InvitationPending, inv.Status)
	assert.Equal(t, "come!", *inv.Message)

	require.Len(t, env.emails.invitations, 1)
	sent := env.emails.invitations[0]
	assert.Equal(t, "bob@example.com", sent.Email)
	assert.Equal(t, "Alice", sent.InviterName)
	assert.Equal(t, "Wedding", sent.EventTitle)
	assert.Equal(t, "come!", sent.Message)
	assert.Equal(t, "Conduit", sent.AppName)

	dup := &domain.EventInvitation{EventID: eventID, InviterID: alice, InviteeID: bob}
	require.ErrorIs(t, env.invitations.Invite(ctx, dup), domain.ErrDuplicateInvitation)

	env.join(carol, eventID)
	member := &domain.EventInvitation{EventID: eventID, InviterID: alice, InviteeID: carol}
	require.ErrorIs(t, env.invitations.Invite(ctx, member), domain.ErrAlreadyMember)

	publicID := env.createEvent(alice, "Open house", false)
	notMember := &domain.EventInvitation{EventID: publicID, InviterID: bob, InviteeID: carol}
	require.ErrorIs(t, env.invitations.Invite(ctx, notMember), domain.ErrNotMember)
}

func TestInvitationService_Respond(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	alice := env.store.addProfile("Alice", "alice@example.com")
	bob := env.store.addProfile("Bob", "bob@example.com")
	carol := env.store.addProfile("Carol", "carol@example.com")
	dave := env.store.addProfile("Dave", "dave@example.com")
	eventID := env.createEvent(alice, "Wedding", true)

	inv := &domain.EventInvitation{EventID: eventID, InviterID: alice, InviteeID: bob}
	require.NoError(t, env.invitations.Invite(ctx, inv))

	mine, err := env.invitations.ListMyInvitations(ctx, bob)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = env.invitations.Respond(ctx, carol, inv.ID, domain.InvitationAccepted)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.invitations.Respond(ctx, alice, inv.ID, domain.InvitationAccepted)
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.invitations.Respond(ctx, bob, inv.ID, domain.InvitationPending)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err := env.invitations.Respond(ctx, bob, inv.ID, domain.InvitationAccepted)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationAccepted, got.Status)
	require.NotNil(t, got.RespondedAt)
	assert.Equal(t, testNow, *got.RespondedAt)

	e, err := env.events.GetEvent(ctx, bob, eventID)
	require.NoError(t, err)
	assert.Equal(t, 2, e.ParticipantCount)
	assert.Equal(t, env.store.activeCount(eventID), e.ParticipantCount)

	call, err := fakeCalls{env.store}.GetActiveByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Contains(t, call.Participants, bob)

	_, err = env.invitations.Respond(ctx, bob, inv.ID, domain.InvitationDeclined)
	require.ErrorIs(t, err, domain.ErrInvitationResponded)

	mine, err = env.invitations.ListMyInvitations(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, mine)

	t.Run("decline does not join", func(t *testing.T) {
		inv := &domain.EventInvitation{EventID: eventID, InviterID: bob, InviteeID: dave}
		require.NoError(t, env.invitations.Invite(ctx, inv))
		got, err := env.invitations.Respond(ctx, dave, inv.ID, domain.InvitationDeclined)
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationDeclined, got.Status)
		_, err = env.events.GetEvent(ctx, dave, eventID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("event listing is for active members", func(t *testing.T) {
		list, err := env.invitations.ListEventInvitations(ctx, alice, eventID)
		require.NoError(t, err)
		assert.Len(t, list, 2)
		_, err = env.invitations.ListEventInvitations(ctx, carol, eventID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
