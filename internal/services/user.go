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

const (
	minSearchQueryLen  = 2
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

type userService struct {
	profiles       domain.ProfileRepository
	contextTimeout time.Duration
}

// NewUserService creates a UserService.
func NewUserService(profiles domain.ProfileRepository, timeout time.Duration) domain.UserService {
	return &userService{
		profiles:       profiles,
		contextTimeout: timeout,
	}
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.profiles.GetByID(ctx, id)
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = normalizeEmail(email)
	if email == "" {
		return nil, invalidf("email is required")
	}
	return s.profiles.GetByEmail(ctx, email)
}

func (s *userService) UpdateProfile(ctx context.Context, callerID, profileID string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.profiles.GetByID(ctx, profileID); err != nil {
		return nil, err
	}
	if !policy.CanMutateProfile(callerID, profileID) {
		return nil, domain.ErrForbidden
	}
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return nil, invalidf("full_name cannot be empty")
		}
		upd.FullName = &name
	}

	p, err := s.profiles.Update(ctx, profileID, upd)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// Search matches name or email and never returns the caller.
func (s *userService) Search(ctx context.Context, callerID, query string, limit int) ([]*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchQueryLen {
		return nil, invalidf("query must be at least %d characters", minSearchQueryLen)
	}
	return s.profiles.Search(ctx, query, callerID, clampLimit(limit, defaultSearchLimit, maxSearchLimit))
}
