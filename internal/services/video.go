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

type videoService struct {
	calls          domain.VideoCallRepository
	memberships    domain.MembershipRepository
	profiles       domain.ProfileRepository
	notifier       domain.NotificationService
	presence       domain.CallPresence
	contextTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewVideoService creates a VideoService. presence reports live signaling
// connections; notifier may be nil to disable call push notifications.
func NewVideoService(
	calls domain.VideoCallRepository,
	memberships domain.MembershipRepository,
	profiles domain.ProfileRepository,
	notifier domain.NotificationService,
	presence domain.CallPresence,
	timeout time.Duration,
	logger *slog.Logger,
) domain.VideoService {
	return &videoService{
		calls:          calls,
		memberships:    memberships,
		profiles:       profiles,
		notifier:       notifier,
		presence:       presence,
		contextTimeout: timeout,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *videoService) StartCall(ctx context.Context, call *domain.VideoCall) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if call.CreatorID == "" {
		return invalidf("call creator is required")
	}
	if call.EventID != nil {
		active, err := isActiveMember(ctx, s.memberships, *call.EventID, call.CreatorID)
		if err != nil {
			return err
		}
		if !active {
			return domain.ErrNotMember
		}
	}

	participants := []string{call.CreatorID}
	for _, id := range call.Participants {
		if id != "" && !slices.Contains(participants, id) {
			participants = append(participants, id)
		}
	}
	if call.EventID == nil && len(participants) < 2 {
		return invalidf("a call needs at least one other participant")
	}
	call.Participants = participants
	call.IsGroupCall = call.EventID != nil || len(participants) > 2
	call.IsActive = true
	call.StartedAt = s.now()
	call.EndedAt = nil

	if err := s.calls.Create(ctx, call); err != nil {
		return fmt.Errorf("create call: %w", err)
	}
	s.notifyParticipants(ctx, call)
	return nil
}

// notifyParticipants pushes the incoming call to every participant except the creator.
func (s *videoService) notifyParticipants(ctx context.Context, call *domain.VideoCall) {
	if s.notifier == nil || len(call.Participants) < 2 {
		return
	}
	callerName := "Someone"
	if p, err := s.profiles.GetByID(ctx, call.CreatorID); err == nil {
		callerName = p.FullName
	}
	n := domain.NewVideoCallPush(callerName, call.EventID)
	n.Data["call_id"] = call.ID
	recipients := slices.DeleteFunc(slices.Clone(call.Participants), func(id string) bool { return id == call.CreatorID })

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		for _, userID := range recipients {
			if _, err := s.notifier.NotifyUser(ctx, userID, n); err != nil {
				logPushFailure(ctx, s.logger, userID, err)
			}
		}
	}()
}

func (s *videoService) GetCall(ctx context.Context, callerID, callID string) (*domain.VideoCall, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.visibleCall(ctx, callerID, callID)
}

func (s *videoService) visibleCall(ctx context.Context, callerID, callID string) (*domain.VideoCall, error) {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	visible, err := s.canView(ctx, callerID, call)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, domain.ErrNotFound
	}
	return call, nil
}

func (s *videoService) canView(ctx context.Context, callerID string, call *domain.VideoCall) (bool, error) {
	if policy.CanViewCall(callerID, call, false) {
		return true, nil
	}
	if call.EventID == nil {
		return false, nil
	}
	active, err := isActiveMember(ctx, s.memberships, *call.EventID, callerID)
	if err != nil {
		return false, err
	}
	return policy.CanViewCall(callerID, call, active), nil
}

func (s *videoService) JoinCall(ctx context.Context, callerID, callID string) (*domain.VideoCall, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	call, err := s.visibleCall(ctx, callerID, callID)
	if err != nil {
		return nil, err
	}
	if !call.IsActive {
		return nil, domain.ErrCallEnded
	}
	if call.HasParticipant(callerID) {
		return call, nil
	}
	return s.calls.AddParticipant(ctx, callID, callerID)
}

func (s *videoService) LeaveCall(ctx context.Context, callerID, callID string) (*domain.VideoCall, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	call, err := s.visibleCall(ctx, callerID, callID)
	if err != nil {
		return nil, err
	}
	if !call.IsActive {
		return nil, domain.ErrCallEnded
	}
	return s.calls.RemoveParticipant(ctx, callID, callerID)
}

func (s *videoService) EndCall(ctx context.Context, callerID, callID string) (*domain.VideoCall, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	call, err := s.visibleCall(ctx, callerID, callID)
	if err != nil {
		return nil, err
	}
	if !policy.CanEndCall(callerID, call) {
		return nil, domain.ErrForbidden
	}
	if !call.IsActive {
		return nil, domain.ErrCallEnded
	}
	return s.calls.End(ctx, callID, s.now())
}

func (s *videoService) ListActiveCalls(ctx context.Context, callerID string) ([]*domain.VideoCall, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.calls.ListActiveForUser(ctx, callerID)
}

func (s *videoService) ListEventCalls(ctx context.Context, callerID, eventID string) ([]*domain.VideoCall, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	active, err := isActiveMember(ctx, s.memberships, eventID, callerID)
	if err != nil {
		return nil, err
	}
	calls, err := s.calls.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event calls: %w", err)
	}
	return slices.DeleteFunc(calls, func(c *domain.VideoCall) bool {
		return !policy.CanViewCall(callerID, c, active)
	}), nil
}

// ListParticipants joins the call's participants with their profiles and live presence.
func (s *videoService) ListParticipants(ctx context.Context, callerID, callID string) ([]*domain.CallParticipant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	call, err := s.visibleCall(ctx, callerID, callID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.CallParticipant, 0, len(call.Participants))
	for _, userID := range call.Participants {
		p, err := s.profiles.GetByID(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load participant: %w", err)
		}
		out = append(out, &domain.CallParticipant{
			UserID:    p.ID,
			FullName:  p.FullName,
			AvatarURL: p.AvatarURL,
			IsOnline:  s.presence != nil && s.presence.IsOnline(callID, userID),
		})
	}
	return out, nil
}
