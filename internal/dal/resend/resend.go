package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/unihub/notify-svc/internal/config"
)

const (
	defaultBaseURL     = "https://api.resend.com"
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	maxJitter          = 100 * time.Millisecond
)

// Client sends transactional emails through the Resend HTTP API. Sends hit
// the provider directly; there is no local persistence of sent state, so a
// re-invocation resends.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	from        string
	maxAttempts int
	baseDelay   time.Duration
}

// NewClient creates a new email client.
func NewClient(cfg *config.EmailConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}
	baseDelay := cfg.BaseDelay
	if baseDelay == 0 {
		baseDelay = defaultBaseDelay
	}

	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		from:        cfg.From,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// DeliveryError reports a send that failed after the given number of
// attempts, either because retries were exhausted on rate limiting or
// because the provider returned a non-retryable status.
type DeliveryError struct {
	Attempts   int
	StatusCode int
	Message    string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to send email after %d attempts: %s", e.Attempts, e.Message)
}

// sendEmailRequest is the provider's request body.
type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// sendEmailResponse is the provider's success body.
type sendEmailResponse struct {
	ID string `json:"id"`
}

// errorResponse is the provider's structured error body.
type errorResponse struct {
	Message string `json:"message"`
}

// Send delivers one email and returns the provider's message id. On HTTP 429
// it retries up to the configured attempt limit, waiting
// baseDelay*2^(attempt-1) plus up to 100ms of jitter between attempts. Any
// other non-2xx status fails immediately with a *DeliveryError.
func (c *Client) Send(ctx context.Context, to, subject, html string) (string, error) {
	payload, err := json.Marshal(sendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal email request: %w", err)
	}

	attempt := 0
	for {
		attempt++

		id, status, providerMsg, err := c.attempt(ctx, payload)
		if err != nil {
			return "", fmt.Errorf("failed to call email API: %w", err)
		}
		if status >= 200 && status < 300 {
			slog.Info("Email sent", "to", to, "subject", subject, "message_id", id, "attempt", attempt)

			return id, nil
		}

		if status == http.StatusTooManyRequests && attempt < c.maxAttempts {
			wait := c.backoff(attempt)
			slog.Warn("Email provider rate limited, retrying",
				"subject", subject,
				"attempt", attempt,
				"wait", wait.String(),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}

			continue
		}

		slog.Error("Email provider error",
			"subject", subject,
			"status", status,
			"attempts", attempt,
			"provider_message", providerMsg,
		)

		return "", &DeliveryError{
			Attempts:   attempt,
			StatusCode: status,
			Message:    providerMsg,
		}
	}
}

// attempt performs a single provider call and returns the message id on
// success or the provider's error message otherwise.
func (c *Client) attempt(ctx context.Context, payload []byte) (id string, status int, providerMsg string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var success sendEmailResponse
		if err := json.Unmarshal(body, &success); err != nil {
			return "", 0, "", fmt.Errorf("failed to decode provider response: %w", err)
		}

		return success.ID, resp.StatusCode, "", nil
	}

	var provider errorResponse
	if err := json.Unmarshal(body, &provider); err != nil || provider.Message == "" {
		provider.Message = fmt.Sprintf("failed to parse error response, status: %d", resp.StatusCode)
	}

	return "", resp.StatusCode, provider.Message, nil
}

// backoff computes the wait before the next attempt: exponential doubling
// from the base delay plus uniform jitter in [0, 100ms).
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.baseDelay << (attempt - 1)
	jitter := time.Duration(rand.Int64N(int64(maxJitter)))

	return wait + jitter
}
