package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"card-fulfillment/internal/core/config"
	"card-fulfillment/internal/core/httpclient"
)

// UltramsgAdapter implements ports.Messenger using the Ultramsg WhatsApp API.
type UltramsgAdapter struct {
	// client is the HTTP client used for API requests.
	client *http.Client
	// config holds the instance id and token.
	config config.UltramsgConfig
}

// NewUltramsgAdapter creates a new instance of UltramsgAdapter.
func NewUltramsgAdapter(cfg config.UltramsgConfig) *UltramsgAdapter {
	return &UltramsgAdapter{
		client: httpclient.NewClient(10 * time.Second),
		config: cfg,
	}
}

// SendText sends body as a chat message to phone.
func (a *UltramsgAdapter) SendText(ctx context.Context, phone, body string) error {
	endpoint := fmt.Sprintf("%s/%s/messages/chat?token=%s",
		strings.TrimRight(a.config.URL, "/"), a.config.InstanceID, url.QueryEscape(a.config.Token))

	payload, err := json.Marshal(map[string]string{"to": phone, "body": body})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ultramsg API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result struct {
		Sent  string `json:"sent"`
		Error any    `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != nil {
		return fmt.Errorf("ultramsg rejected message: %v", result.Error)
	}

	return nil
}
