package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"conduit/internal/domain"
)

const (
	DefaultLegacyURL = "https://fcm.googleapis.com/fcm/send"
	DefaultV1BaseURL = "https://fcm.googleapis.com"
	messagingScope   = "https://www.googleapis.com/auth/firebase.messaging"

	ModeV1     = "v1"
	ModeLegacy = "legacy"
	ModeNone   = "none"
)

// FCMConfig selects the FCM credential mode. A service account wins over a server key;
// with neither the sender reports itself as not configured.
type FCMConfig struct {
	ServerKey          string
	ServiceAccountJSON []byte
	LegacyURL          string
	V1BaseURL          string
	HTTPClient         *http.Client
}

type serviceAccount struct {
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
}

type fcmSender struct {
	mode      string
	client    *http.Client
	logger    *slog.Logger
	serverKey string
	legacyURL string
	v1URL     string
	tokens    oauth2.TokenSource
}

// NewFCMSender builds a PushSender for the configured FCM mode.
func NewFCMSender(cfg FCMConfig, logger *slog.Logger) (domain.PushSender, error) {
	s := &fcmSender{
		mode:      ModeNone,
		client:    cfg.HTTPClient,
		logger:    logger.With("component", "fcm"),
		serverKey: cfg.ServerKey,
		legacyURL: cfg.LegacyURL,
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 10 * time.Second}
	}
	if s.legacyURL == "" {
		s.legacyURL = DefaultLegacyURL
	}

	switch {
	case len(cfg.ServiceAccountJSON) > 0:
		var sa serviceAccount
		if err := json.Unmarshal(cfg.ServiceAccountJSON, &sa); err != nil {
			return nil, fmt.Errorf("parse service account: %w", err)
		}
		if sa.ProjectID == "" || sa.ClientEmail == "" || sa.PrivateKey == "" {
			return nil, errors.New("service account requires project_id, client_email and private_key")
		}
		// The token source parses the key lazily; reject a broken key at startup instead.
		if _, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey)); err != nil {
			return nil, fmt.Errorf("parse service account key: %w", err)
		}
		creds, err := google.JWTConfigFromJSON(cfg.ServiceAccountJSON, messagingScope)
		if err != nil {
			return nil, fmt.Errorf("load service account: %w", err)
		}
		base := cfg.V1BaseURL
		if base == "" {
			base = DefaultV1BaseURL
		}
		s.mode = ModeV1
		s.v1URL = strings.TrimSuffix(base, "/") + "/v1/projects/" + url.PathEscape(sa.ProjectID) + "/messages:send"
		// The token exchange uses the sender's client; tokens are cached until shortly before expiry.
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, s.client)
		s.tokens = creds.TokenSource(tokenCtx)
	case cfg.ServerKey != "":
		s.mode = ModeLegacy
	}
	s.logger.Info("push sender ready", "mode", s.mode)
	return s, nil
}

func (s *fcmSender) Mode() string { return s.mode }

func (s *fcmSender) Configured() bool { return s.mode != ModeNone }

func (s *fcmSender) Send(ctx context.Context, token string, n domain.PushNotification) error {
	switch s.mode {
	case ModeV1:
		return s.sendV1(ctx, token, n)
	case ModeLegacy:
		return s.sendLegacy(ctx, token, n)
	default:
		return domain.ErrPushNotConfigured
	}
}

type notificationBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func dataOrEmpty(d map[string]string) map[string]string {
	if d == nil {
		return map[string]string{}
	}
	return d
}

func (s *fcmSender) sendV1(ctx context.Context, token string, n domain.PushNotification) error {
	tok, err := s.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: access token: %v", domain.ErrProviderRejected, err)
	}
	payload := map[string]any{
		"message": map[string]any{
			"token":        token,
			"notification": notificationBody{Title: n.Title, Body: n.Body},
			"data":         dataOrEmpty(n.Data),
		},
	}
	status, body, err := s.postJSON(ctx, s.v1URL, tok.Type()+" "+tok.AccessToken, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: fcm v1 status %d: %s", domain.ErrProviderRejected, status, body)
	}
	return nil
}

type legacyResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

func (s *fcmSender) sendLegacy(ctx context.Context, token string, n domain.PushNotification) error {
	payload := map[string]any{
		"to":           token,
		"notification": notificationBody{Title: n.Title, Body: n.Body},
		"data":         dataOrEmpty(n.Data),
	}
	status, body, err := s.postJSON(ctx, s.legacyURL, "key="+s.serverKey, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: fcm legacy status %d: %s", domain.ErrProviderRejected, status, body)
	}
	var res legacyResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return fmt.Errorf("%w: decode legacy response: %v", domain.ErrProviderRejected, err)
	}
	if res.Success == 0 {
		return fmt.Errorf("%w: fcm legacy: %s", domain.ErrProviderRejected, body)
	}
	return nil
}

func (s *fcmSender) postJSON(ctx context.Context, endpoint, authorization string, payload any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode fcm payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrProviderRejected, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, nil, fmt.Errorf("read fcm response: %w", err)
	}
	return resp.StatusCode, bytes.TrimSpace(body), nil
}
