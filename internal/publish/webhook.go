package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const webhookTimeout = 30 * time.Second

// Webhook POSTs the report as JSON to a relay endpoint that owns the actual
// social-media credentials. Status codes map onto the delivery taxonomy:
// 401/403 permission, 409 duplicate, any other non-2xx Other.
type Webhook struct {
	client *http.Client
	url    string
	token  string
}

func NewWebhook(url, token string) *Webhook {
	return &Webhook{
		client: &http.Client{Timeout: webhookTimeout},
		url:    url,
		token:  token,
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Publish(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return &Error{Kind: Other, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: Other, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return &Error{Kind: Other, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &Error{Kind: PermissionDenied, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusConflict:
		return &Error{Kind: DuplicateContent, Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		return &Error{Kind: Other, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
}
