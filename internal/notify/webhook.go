package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookNotifier POSTs events as JSON to a fixed URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier registers the endpoint.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	ApprovalEvent
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// NotifyApproved sends ev. Any non-2xx response is an error.
func (n *WebhookNotifier) NotifyApproved(ctx context.Context, ev ApprovalEvent) error {
	if n.url == "" || n.client == nil {
		return fmt.Errorf("webhook notifier misconfigured")
	}

	notice := ev.Notice()
	body, err := json.Marshal(webhookPayload{ApprovalEvent: ev, Subject: notice.Subject(), Text: notice.Text()})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", ev.Key.String())

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook error: %s", resp.Status)
	}
	return nil
}
