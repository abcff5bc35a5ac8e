package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// WelcomeEmailData holds data for the welcome email sent after registration.
type WelcomeEmailData struct {
	Email    string
	FullName string
	AppName  string
}

// EventInvitationEmailData holds data for the invitation email.
type EventInvitationEmailData struct {
	Email       string
	InviteeName string
	InviterName string
	EventTitle  string
	Message     string
	AppName     string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendWelcome(ctx context.Context, data *WelcomeEmailData) error
	SendEventInvitation(ctx context.Context, data *EventInvitationEmailData) error
}
