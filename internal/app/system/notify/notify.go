// internal/app/system/notify/notify.go
//
// Package notify is the messaging collaborator: the core decides what to
// send (an invitation link, a chat reply) and hands it off here. Delivery is
// fire-and-forget; failures are logged by the caller and never become
// caller-visible errors.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Sender delivers a message to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// WebhookSender posts messages to an SMS-gateway webhook.
type WebhookSender struct {
	url        string
	httpClient *http.Client
}

// Option configures a WebhookSender.
type Option func(*WebhookSender)

// WithHTTPClient overrides the default short-timeout client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *WebhookSender) { s.httpClient = c }
}

// NewWebhookSender builds a sender posting to url. The default client has a
// 5s timeout so a slow gateway cannot stall the post-commit path.
func NewWebhookSender(url string, opts ...Option) *WebhookSender {
	s := &WebhookSender{
		url:        url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type outboundMessage struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Send posts {to, message} as JSON. Any non-2xx response is an error.
func (s *WebhookSender) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(outboundMessage{To: phone, Message: message})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %s", resp.Status)
	}
	return nil
}

// NopSender discards messages. Used when no gateway is configured.
type NopSender struct{}

func (NopSender) Send(ctx context.Context, phone, message string) error { return nil }
