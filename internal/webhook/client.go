// Package webhook доставляет эффекты в чат-шлюз по HTTP.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// KeyHeader carries the outbox key (chat id or "callback.<id>") so the gateway
// can keep per-chat order without parsing the body.
const KeyHeader = "X-Effect-Key"

// Client отправляет эффекты POST-запросом на URL шлюза.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Publish posts payload as JSON. Any non-2xx answer is an error, so a
// failed delivery reaches the caller.
func (c *Client) Publish(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(KeyHeader, key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.WarnContext(ctx, "webhook: gateway rejected effect", "status", resp.StatusCode, "key", key)
		return fmt.Errorf("webhook: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
