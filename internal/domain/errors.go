package domain

import "errors"

// Sentinel errors shared by repositories, services and controllers.
var (
	// ErrNotFound is returned when a row does not exist or the caller is not allowed to see it.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller can see a row but is not allowed to change it.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is returned when a request violates a domain rule or a check constraint.
	ErrInvalidInput = errors.New("invalid input")

	ErrAlreadyMember      = errors.New("already an active member of the event")
	ErrNotMember          = errors.New("not an active member of the event")
	ErrCreatorCannotLeave = errors.New("event creator cannot leave the event")

	ErrDuplicateEmail     = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrDuplicateInvitation = errors.New("invitation already exists for this user")
	ErrInvitationResponded = errors.New("invitation already responded")

	ErrCallEnded = errors.New("video call has ended")
)
