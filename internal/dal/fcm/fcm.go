package fcm

import (
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

	"github.com/unihub/notify-svc/internal/config"
	"github.com/unihub/notify-svc/internal/dal/interfaces/idevicetokenrepo"
)

const (
	defaultEndpoint = "https://fcm.googleapis.com"
	messagingScope  = "https://www.googleapis.com/auth/firebase.messaging"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// serviceAccount is the credential blob issued for the messaging capability.
type serviceAccount struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// Dispatcher sends FCM push messages. Every failure is logged and swallowed:
// a broken push path must never block email or in-app notification delivery.
type Dispatcher struct {
	httpClient *http.Client
	endpoint   string
	creds      *serviceAccount
	tokens     idevicetokenrepo.IDeviceTokenRepository
}

// NewDispatcher creates a new push dispatcher. A missing or malformed
// service account credential is not fatal here; sends fail closed instead.
func NewDispatcher(cfg *config.FCMConfig, tokens idevicetokenrepo.IDeviceTokenRepository) *Dispatcher {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	var creds *serviceAccount
	if cfg.ServiceAccountJSON == "" {
		slog.Warn("FCM service account is not configured, push sending is disabled")
	} else if err := json.Unmarshal([]byte(cfg.ServiceAccountJSON), &creds); err != nil {
		slog.Error("Failed to parse FCM service account, push sending is disabled", "error", err)
		creds = nil
	}

	return &Dispatcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   endpoint,
		creds:      creds,
		tokens:     tokens,
	}
}

// pushMessage is the FCM v1 message envelope.
type pushMessage struct {
	Message message `json:"message"`
}

type message struct {
	Token        string            `json:"token"`
	Notification body              `json:"notification"`
	Data         map[string]string `json:"data"`
	APNS         apnsConfig        `json:"apns"`
	Android      androidConfig     `json:"android"`
}

type body struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type apnsConfig struct {
	Payload apnsPayload `json:"payload"`
}

type apnsPayload struct {
	APS aps `json:"aps"`
}

type aps struct {
	Sound string `json:"sound"`
	Badge int    `json:"badge"`
}

type androidConfig struct {
	Notification androidNotification `json:"notification"`
}

type androidNotification struct {
	Sound       string `json:"sound"`
	ClickAction string `json:"click_action"`
}

// SendPush delivers one push notification to the user's registered device.
// It never returns an error: token resolution, credential exchange and
// gateway failures are all logged and swallowed. Callers skip the call when
// no user id is resolvable.
func (d *Dispatcher) SendPush(ctx context.Context, userID, title, pushBody, orderID, productName string) {
	if err := d.send(ctx, userID, title, pushBody, orderID, productName); err != nil {
		slog.Error("Push notification failed",
			"user_id", userID,
			"order_id", orderID,
			"title", title,
			"error", err,
		)

		return
	}

	slog.Info("Push notification sent", "user_id", userID, "order_id", orderID, "title", title)
}

func (d *Dispatcher) send(ctx context.Context, userID, title, pushBody, orderID, _ string) error {
	if userID == "" {
		return errors.New("user id is empty")
	}
	if d.creds == nil {
		return errors.New("push credentials are not configured")
	}

	deviceToken, err := d.tokens.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve device token: %w", err)
	}

	accessToken, err := d.accessToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}

	payload, err := json.Marshal(pushMessage{
		Message: message{
			Token: deviceToken,
			Notification: body{
				Title: title,
				Body:  pushBody,
			},
			Data: map[string]string{
				"order_id": orderID,
				"screen":   "/orders",
			},
			APNS: apnsConfig{
				Payload: apnsPayload{
					APS: aps{Sound: "default", Badge: 1},
				},
			},
			Android: androidConfig{
				Notification: androidNotification{
					Sound:       "default",
					ClickAction: "FLUTTER_NOTIFICATION_CLICK",
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	sendURL := fmt.Sprintf("%s/v1/projects/%s/messages:send", d.endpoint, d.creds.ProjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)

		return fmt.Errorf("FCM request failed: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	return nil
}

// accessToken exchanges a signed service account assertion for a bearer
// token scoped to the messaging capability.
func (d *Dispatcher) accessToken(ctx context.Context) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(d.creds.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse service account key: %w", err)
	}

	now := time.Now()
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   d.creds.ClientEmail,
		"scope": messagingScope,
		"aud":   d.creds.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.creds.TokenURI,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)

		return "", fmt.Errorf("token exchange failed: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("token response contains no access token")
	}

	return tokenResp.AccessToken, nil
}
