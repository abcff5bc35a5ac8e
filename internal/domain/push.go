package domain

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"
)

// Push dispatch errors. Each is reported distinctly to the caller.
var (
	ErrPushNotConfigured = errors.New("push notifications are not configured")
	ErrNoDeviceTokens    = errors.New("no registered device tokens")
	ErrProviderRejected  = errors.New("push provider rejected the notification")
)

// DeviceType is the platform of a registered device.
type DeviceType string

const (
	DeviceIOS     DeviceType = "ios"
	DeviceAndroid DeviceType = "android"
	DeviceWeb     DeviceType = "web"
)

// DeviceToken is a push token registered by a user's device.
// swagger:model DeviceToken
type DeviceToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Token      string     `json:"token"`
	DeviceType DeviceType `json:"device_type"`
	DeviceName *string    `json:"device_name,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// PushNotification is the provider-neutral notification sent to one device.
type PushNotification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Push payload types.
const (
	PushTypeMessage   = "message"
	PushTypeVideoCall = "video_call"
	PushTypeTest      = "test"
)

const pushBodyMaxRunes = 100

// NewMessagePush builds the notification for a new chat message.
func NewMessagePush(senderName, content string, eventID *string) PushNotification {
	body := content
	if utf8.RuneCountInString(body) > pushBodyMaxRunes {
		body = string([]rune(body)[:pushBodyMaxRunes]) + "..."
	}
	data := map[string]string{
		"type":        PushTypeMessage,
		"sender_name": senderName,
	}
	if eventID != nil {
		data["event_id"] = *eventID
	}
	return PushNotification{Title: "New message from " + senderName, Body: body, Data: data}
}

// NewVideoCallPush builds the notification for an incoming video call.
func NewVideoCallPush(callerName string, eventID *string) PushNotification {
	data := map[string]string{
		"type":        PushTypeVideoCall,
		"caller_name": callerName,
	}
	if eventID != nil {
		data["event_id"] = *eventID
	}
	return PushNotification{Title: "Video call from " + callerName, Body: callerName + " is starting a video call", Data: data}
}

// PushSender delivers a notification to a single device token.
type PushSender interface {
	// Mode names the credential mode in use ("v1", "legacy" or "none").
	Mode() string
	Configured() bool
	Send(ctx context.Context, token string, n PushNotification) error
}

// DispatchResult summarises a fan-out to a user's devices.
// swagger:model DispatchResult
type DispatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// DeviceTokenRepository defines the interface for device token storage.
type DeviceTokenRepository interface {
	Upsert(ctx context.Context, t *DeviceToken) error
	Deactivate(ctx context.Context, userID, token string) error
	ListActiveByUser(ctx context.Context, userID string) ([]*DeviceToken, error)
}

// NotificationService registers devices and dispatches push notifications.
type NotificationService interface {
	RegisterToken(ctx context.Context, t *DeviceToken) error
	UnregisterToken(ctx context.Context, userID, token string) error
	NotifyUser(ctx context.Context, userID string, n PushNotification) (*DispatchResult, error)
	SendTest(ctx context.Context, userID string) (*DispatchResult, error)
}
