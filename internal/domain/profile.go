package domain

import (
	"context"
	"time"
)

// Profile roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Profile represents a registered user. One profile exists per identity.
// swagger:model Profile
type Profile struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	AvatarURL    *string    `json:"avatar_url,omitempty"`
	PhoneNumber  *string    `json:"phone_number,omitempty"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	PasswordHash string     `json:"-"`
	Salt         string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewProfile returns a new active Profile with the user role. ID is set by the repository on create.
func NewProfile(email, fullName string, createdAt time.Time) *Profile {
	return &Profile{
		Email:     email,
		FullName:  fullName,
		Role:      RoleUser,
		IsActive:  true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ProfileUpdate holds the owner-editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FullName    *string
	AvatarURL   *string
	PhoneNumber *string
}

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// ProfileRepository defines the interface for profile storage.
type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Update(ctx context.Context, id string, upd ProfileUpdate) (*Profile, error)
	Search(ctx context.Context, query, excludeID string, limit int) ([]*Profile, error)
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

// AuthService registers users and exchanges credentials for access tokens.
type AuthService interface {
	Register(ctx context.Context, email, password, fullName string) (*Profile, string, error)
	Login(ctx context.Context, email, password string) (string, *Profile, error)
	// Refresh mints a new access token for an active user and returns its lifetime.
	Refresh(ctx context.Context, userID string) (string, time.Duration, error)
}

// UserService defines profile lookups and owner-only profile updates.
type UserService interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	UpdateProfile(ctx context.Context, callerID, profileID string, upd ProfileUpdate) (*Profile, error)
	Search(ctx context.Context, callerID, query string, limit int) ([]*Profile, error)
}
