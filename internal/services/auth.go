package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"conduit/internal/domain"
)

const minPasswordLen = 8

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type authService struct {
	profiles       domain.ProfileRepository
	hasher         domain.PasswordHasher
	issuer         domain.TokenIssuer
	emails         domain.EmailService
	appName        string
	tokenExpiry    time.Duration
	contextTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewAuthService creates an AuthService. emails may be nil, in which case no welcome email is sent.
func NewAuthService(
	profiles domain.ProfileRepository,
	hasher domain.PasswordHasher,
	issuer domain.TokenIssuer,
	emails domain.EmailService,
	appName string,
	tokenExpiry time.Duration,
	timeout time.Duration,
	logger *slog.Logger,
) domain.AuthService {
	return &authService{
		profiles:       profiles,
		hasher:         hasher,
		issuer:         issuer,
		emails:         emails,
		appName:        appName,
		tokenExpiry:    tokenExpiry,
		contextTimeout: timeout,
		logger:         logger,
		now:            time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *authService) Register(ctx context.Context, email, password, fullName string) (*domain.Profile, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = normalizeEmail(email)
	if !emailRegexp.MatchString(email) {
		return nil, "", invalidf("invalid email format")
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return nil, "", invalidf("password must be at least %d characters", minPasswordLen)
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, "", invalidf("full_name is required")
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, "", fmt.Errorf("generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	profile := domain.NewProfile(email, fullName, s.now())
	profile.PasswordHash = hash
	profile.Salt = salt
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, "", fmt.Errorf("create profile: %w", err)
	}

	if s.emails != nil {
		welcome := &domain.WelcomeEmailData{Email: profile.Email, FullName: profile.FullName, AppName: s.appName}
		if err := s.emails.SendWelcome(ctx, welcome); err != nil {
			s.logger.WarnContext(ctx, "welcome email failed", "user_id", profile.ID, "err", err)
		}
	}

	token, err := s.issue(profile)
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	profile, err := s.profiles.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load profile: %w", err)
	}
	if !profile.IsActive {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(profile.PasswordHash, profile.Salt, password); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.profiles.TouchLastSeen(ctx, profile.ID, now); err != nil {
		s.logger.WarnContext(ctx, "touch last_seen failed", "user_id", profile.ID, "err", err)
	} else {
		profile.LastSeen = &now
	}

	token, err := s.issue(profile)
	if err != nil {
		return "", nil, err
	}
	return token, profile, nil
}

func (s *authService) Refresh(ctx context.Context, userID string) (string, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", 0, domain.ErrInvalidCredentials
		}
		return "", 0, fmt.Errorf("load profile: %w", err)
	}
	if !profile.IsActive {
		return "", 0, domain.ErrInvalidCredentials
	}
	token, err := s.issue(profile)
	if err != nil {
		return "", 0, err
	}
	return token, s.tokenExpiry, nil
}

func (s *authService) issue(p *domain.Profile) (string, error) {
	token, err := s.issuer.Issue(p.ID, p.Email, []string{p.Role}, s.tokenExpiry)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
