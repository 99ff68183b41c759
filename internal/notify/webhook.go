package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookSender delivers reminders by posting one JSON message per
// recipient to the configured endpoint. The chat transport behind the
// endpoint is outside this service.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender constructs a sender for the given endpoint URL.
func NewWebhookSender(url string, client *http.Client) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSender{url: url, client: client}
}

type webhookMessage struct {
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
}

// Send posts the message. Any transport error or non-2xx status is a
// delivery failure for this recipient only.
func (s *WebhookSender) Send(ctx context.Context, recipientID, text string) error {
	body, err := json.Marshal(webhookMessage{RecipientID: recipientID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver message: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delivery endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
