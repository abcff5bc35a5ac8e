package services

import (
	"context"
	"testing"

	"conduit/internal/adapters/email"
	"conduit/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, html, text string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, html, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: html, text: text})
	return nil
}

func TestEmailService_SendEventInvitation(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewEmailService(mailer, email.NewTemplateRenderer(), discardLogger())

	err := svc.SendEventInvitation(context.Background(), &domain.EventInvitationEmailData{
		Email:       "bob@example.com",
		InviteeName: "Bob",
		InviterName: "Alice",
		EventTitle:  "Wedding",
		Message:     "See you there",
		AppName:     "Conduit",
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	got := mailer.sent[0]
	assert.Equal(t, "bob@example.com", got.to)
	assert.Equal(t, "Alice invited you to Wedding", got.subject)
	assert.Contains(t, got.text, "See you there")
	assert.Contains(t, got.html, "Wedding")
}

func TestEmailService_Errors(t *testing.T) {
	ctx := context.Background()

	svc := NewEmailService(&fakeMailer{}, email.NewTemplateRenderer(), discardLogger())
	require.Error(t, svc.SendWelcome(ctx, nil))
	require.Error(t, svc.SendEventInvitation(ctx, nil))

	failing := NewEmailService(&fakeMailer{err: errBoom}, email.NewTemplateRenderer(), discardLogger())
	err := failing.SendWelcome(ctx, &domain.WelcomeEmailData{Email: "ann@example.com", FullName: "Ann", AppName: "Conduit"})
	require.ErrorIs(t, err, errBoom)
}
