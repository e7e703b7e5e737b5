package resend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unihub/notify-svc/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(&config.EmailConfig{
		APIKey:      "test-key",
		From:        "UniHub <orders@unihub.africa>",
		BaseURL:     srv.URL,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	})

	return client, srv
}

func TestSendSuccess(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	var gotAuth string
	var gotBody sendEmailRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_123"}`))
	})

	id, err := client.Send(context.Background(), "buyer@example.com", "Order Confirmed - UH-1001", "<html></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "msg_123" {
		t.Errorf("message id = %q, want %q", id, "msg_123")
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization header = %q, want %q", gotAuth, "Bearer test-key")
	}
	if len(gotBody.To) != 1 || gotBody.To[0] != "buyer@example.com" {
		t.Errorf("to = %v, want [buyer@example.com]", gotBody.To)
	}
	if gotBody.Subject != "Order Confirmed - UH-1001" {
		t.Errorf("subject = %q, want %q", gotBody.Subject, "Order Confirmed - UH-1001")
	}
}

func TestSendRetriesOnSustainedRateLimit(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"rate limit exceeded"}`))
	})

	_, err := client.Send(context.Background(), "buyer@example.com", "Order Confirmed - UH-1001", "<html></html>")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("error type = %T, want *DeliveryError", err)
	}
	if deliveryErr.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", deliveryErr.Attempts)
	}
	if deliveryErr.Message != "rate limit exceeded" {
		t.Errorf("provider message = %q, want %q", deliveryErr.Message, "rate limit exceeded")
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestSendRecoversAfterRateLimit(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message":"rate limit exceeded"}`))

			return
		}
		w.Write([]byte(`{"id":"msg_456"}`))
	})

	id, err := client.Send(context.Background(), "seller@example.com", "New Order - UH-1001", "<html></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "msg_456" {
		t.Errorf("message id = %q, want %q", id, "msg_456")
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestSendFailsFastOnNonRetryableStatus(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid from address"}`))
	})

	_, err := client.Send(context.Background(), "buyer@example.com", "Order Confirmed - UH-1001", "<html></html>")

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("error type = %T, want *DeliveryError", err)
	}
	if deliveryErr.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", deliveryErr.Attempts)
	}
	if deliveryErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", deliveryErr.StatusCode, http.StatusUnprocessableEntity)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestSendFallsBackWhenErrorBodyIsNotJSON(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	_, err := client.Send(context.Background(), "buyer@example.com", "Order Confirmed - UH-1001", "<html></html>")

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("error type = %T, want *DeliveryError", err)
	}
	if deliveryErr.Message != "failed to parse error response, status: 502" {
		t.Errorf("provider message = %q", deliveryErr.Message)
	}
}

func TestSendBackoffDoublesBetweenAttempts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"rate limit exceeded"}`))
	}))
	t.Cleanup(srv.Close)

	base := 40 * time.Millisecond
	client := NewClient(&config.EmailConfig{
		APIKey:      "test-key",
		From:        "UniHub <orders@unihub.africa>",
		BaseURL:     srv.URL,
		MaxAttempts: 3,
		BaseDelay:   base,
	})

	start := time.Now()
	_, err := client.Send(context.Background(), "buyer@example.com", "Order Confirmed - UH-1001", "<html></html>")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	// Two waits: base*1 and base*2, each plus up to 100ms of jitter.
	if min := 3 * base; elapsed < min {
		t.Errorf("elapsed = %s, want at least %s", elapsed, min)
	}
	if max := 3*base + 2*maxJitter + 500*time.Millisecond; elapsed > max {
		t.Errorf("elapsed = %s, want at most %s", elapsed, max)
	}
}

func TestSendHonorsContextCancellationDuringBackoff(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"rate limit exceeded"}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(&config.EmailConfig{
		APIKey:      "test-key",
		From:        "UniHub <orders@unihub.africa>",
		BaseURL:     srv.URL,
		MaxAttempts: 3,
		BaseDelay:   10 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := client.Send(ctx, "buyer@example.com", "Order Confirmed - UH-1001", "<html></html>")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
