package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"conduit/internal/domain"
	"conduit/internal/policy"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
	pushTimeout         = 15 * time.Second
)

type messageService struct {
	messages       domain.MessageRepository
	memberships    domain.MembershipRepository
	profiles       domain.ProfileRepository
	notifier       domain.NotificationService
	contextTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewMessageService creates a MessageService. notifier may be nil to disable
// direct-message push notifications.
func NewMessageService(
	messages domain.MessageRepository,
	memberships domain.MembershipRepository,
	profiles domain.ProfileRepository,
	notifier domain.NotificationService,
	timeout time.Duration,
	logger *slog.Logger,
) domain.MessageService {
	return &messageService{
		messages:       messages,
		memberships:    memberships,
		profiles:       profiles,
		notifier:       notifier,
		contextTimeout: timeout,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *messageService) Send(ctx context.Context, m *domain.Message) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	var active bool
	if m.EventID != nil {
		var err error
		if active, err = isActiveMember(ctx, s.memberships, *m.EventID, m.SenderID); err != nil {
			return nil, err
		}
		if !active {
			return nil, domain.ErrNotMember
		}
	} else if _, err := s.profiles.GetByID(ctx, *m.RecipientID); err != nil {
		return nil, fmt.Errorf("load recipient: %w", err)
	}
	if !policy.CanSendMessage(m.SenderID, m, active) {
		return nil, domain.ErrForbidden
	}

	m.IsRead = false
	m.CreatedAt = s.now()
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if m.IsDirect() {
		s.notifyRecipient(ctx, m)
		return []string{*m.RecipientID}, nil
	}
	members, err := s.memberships.ListActiveUserIDs(ctx, *m.EventID)
	if err != nil {
		return nil, fmt.Errorf("list event members: %w", err)
	}
	return slices.DeleteFunc(members, func(id string) bool { return id == m.SenderID }), nil
}

// notifyRecipient pushes a direct message to the recipient's devices in the background.
func (s *messageService) notifyRecipient(ctx context.Context, m *domain.Message) {
	if s.notifier == nil {
		return
	}
	senderName := "Someone"
	if p, err := s.profiles.GetByID(ctx, m.SenderID); err == nil {
		senderName = p.FullName
	}
	n := domain.NewMessagePush(senderName, m.Content, m.EventID)
	recipient := *m.RecipientID

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if _, err := s.notifier.NotifyUser(ctx, recipient, n); err != nil {
			logPushFailure(ctx, s.logger, recipient, err)
		}
	}()
}

// logPushFailure logs a failed best-effort push. Missing configuration or
// devices are expected and logged at debug level.
func logPushFailure(ctx context.Context, logger *slog.Logger, userID string, err error) {
	if errors.Is(err, domain.ErrPushNotConfigured) || errors.Is(err, domain.ErrNoDeviceTokens) {
		logger.DebugContext(ctx, "push skipped", "user_id", userID, "reason", err)
		return
	}
	logger.WarnContext(ctx, "push failed", "user_id", userID, "err", err)
}

func (s *messageService) ListEventMessages(ctx context.Context, callerID, eventID string, limit int) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	active, err := isActiveMember(ctx, s.memberships, eventID, callerID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, domain.ErrNotFound
	}
	msgs, err := s.messages.ListByEvent(ctx, eventID, clampLimit(limit, defaultHistoryLimit, maxHistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("list event messages: %w", err)
	}
	return msgs, nil
}

func (s *messageService) ListDirectMessages(ctx context.Context, callerID, otherID string, limit int) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if otherID == callerID {
		return nil, invalidf("cannot list a conversation with yourself")
	}
	msgs, err := s.messages.ListDirect(ctx, callerID, otherID, clampLimit(limit, defaultHistoryLimit, maxHistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("list direct messages: %w", err)
	}
	return slices.DeleteFunc(msgs, func(m *domain.Message) bool {
		return !policy.CanViewMessage(callerID, m, false)
	}), nil
}

func (s *messageService) MarkRead(ctx context.Context, callerID, messageID string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	var active bool
	if m.EventID != nil {
		if active, err = isActiveMember(ctx, s.memberships, *m.EventID, callerID); err != nil {
			return nil, err
		}
	}
	if !policy.CanViewMessage(callerID, m, active) {
		return nil, domain.ErrNotFound
	}
	if !policy.CanMarkRead(callerID, m, active) {
		return nil, domain.ErrForbidden
	}
	if m.IsRead {
		return m, nil
	}
	return s.messages.MarkRead(ctx, messageID)
}
