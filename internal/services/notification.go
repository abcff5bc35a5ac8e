package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"conduit/internal/domain"
	"conduit/internal/metrics"
	"conduit/internal/policy"
)

const defaultPushConcurrency = 4

type notificationService struct {
	tokens         domain.DeviceTokenRepository
	sender         domain.PushSender
	appName        string
	concurrency    int
	contextTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewNotificationService creates a NotificationService that fans notifications
// out to every active device of a user through sender.
func NewNotificationService(
	tokens domain.DeviceTokenRepository,
	sender domain.PushSender,
	appName string,
	timeout time.Duration,
	logger *slog.Logger,
) domain.NotificationService {
	return &notificationService{
		tokens:         tokens,
		sender:         sender,
		appName:        appName,
		concurrency:    defaultPushConcurrency,
		contextTimeout: timeout,
		logger:         logger,
		now:            time.Now,
	}
}

func validDeviceType(t domain.DeviceType) bool {
	switch t {
	case domain.DeviceIOS, domain.DeviceAndroid, domain.DeviceWeb:
		return true
	}
	return false
}

// RegisterToken upserts by token, so a token registered by another user moves to the caller.
func (s *notificationService) RegisterToken(ctx context.Context, t *domain.DeviceToken) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	t.Token = strings.TrimSpace(t.Token)
	if t.Token == "" {
		return invalidf("token is required")
	}
	if !validDeviceType(t.DeviceType) {
		return invalidf("device_type must be ios, android or web")
	}
	if !policy.CanMutateDeviceToken(t.UserID, t) {
		return domain.ErrForbidden
	}

	now := s.now()
	t.IsActive = true
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := s.tokens.Upsert(ctx, t); err != nil {
		return fmt.Errorf("register device token: %w", err)
	}
	return nil
}

func (s *notificationService) UnregisterToken(ctx context.Context, userID, token string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	token = strings.TrimSpace(token)
	if token == "" {
		return invalidf("token is required")
	}
	return s.tokens.Deactivate(ctx, userID, token)
}

// NotifyUser sends n to every active device of userID. It fails with
// domain.ErrProviderRejected only when no device accepted the notification.
func (s *notificationService) NotifyUser(ctx context.Context, userID string, n domain.PushNotification) (*domain.DispatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !s.sender.Configured() {
		return nil, domain.ErrPushNotConfigured
	}
	tokens, err := s.tokens.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil, domain.ErrNoDeviceTokens
	}

	var sent, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, t := range tokens {
		g.Go(func() error {
			if err := s.sender.Send(gctx, t.Token, n); err != nil {
				failed.Add(1)
				metrics.PushNotificationsTotal.WithLabelValues(s.sender.Mode(), "failed").Inc()
				s.logger.WarnContext(gctx, "push to device failed",
					"user_id", userID, "device_type", t.DeviceType, "token", tokenPrefix(t.Token), "err", err)
				return nil
			}
			sent.Add(1)
			metrics.PushNotificationsTotal.WithLabelValues(s.sender.Mode(), "sent").Inc()
			return nil
		})
	}
	_ = g.Wait()

	result := &domain.DispatchResult{Sent: int(sent.Load()), Failed: int(failed.Load())}
	if result.Sent == 0 {
		return result, fmt.Errorf("%w: all %d devices failed", domain.ErrProviderRejected, result.Failed)
	}
	return result, nil
}

func (s *notificationService) SendTest(ctx context.Context, userID string) (*domain.DispatchResult, error) {
	n := domain.PushNotification{
		Title: "Test Notification",
		Body:  fmt.Sprintf("This is a test notification from %s!", s.appName),
		Data:  map[string]string{"type": domain.PushTypeTest},
	}
	return s.NotifyUser(ctx, userID, n)
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
