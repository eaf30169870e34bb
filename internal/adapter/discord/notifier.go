// Package discord implements a notifier.Notifier for Discord webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/notifier"
)

const providerName = "discord"

// sendTimeout caps one webhook delivery; dispatch cycles must not stall on a
// slow Discord endpoint.
const sendTimeout = 10 * time.Second

// Notifier delivers dispatch events to a Discord channel via incoming
// webhook.
type Notifier struct {
	webhookURL string
	username   string
	client     *http.Client
}

// NewNotifier creates a Discord notifier posting to webhookURL. Messages
// appear under the "dispatchd" bot name.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		username:   "dispatchd",
		client:     &http.Client{Timeout: sendTimeout},
	}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{
		RichFormatting: true,
		Threads:        true,
	}
}

// webhookPayload is the Discord execute-webhook request body.
type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// levelColors maps notification levels to embed accent colors.
var levelColors = map[string]int{
	"success": 0x2ECC71,
	"warning": 0xF39C12,
	"error":   0xE74C3C,
	"info":    0x3498DB,
}

func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	body, err := json.Marshal(n.payload(notification))
	if err != nil {
		return fmt.Errorf("discord: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: deliver webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Discord answers 204 No Content on success.
	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord: webhook returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

func (n *Notifier) payload(notification notifier.Notification) webhookPayload {
	color, ok := levelColors[notification.Level]
	if !ok {
		color = levelColors["info"]
	}
	e := embed{
		Title:       notification.Title,
		Description: notification.Message,
		Color:       color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if notification.Source != "" {
		e.Fields = append(e.Fields, embedField{
			Name:   "Event",
			Value:  notification.Source,
			Inline: true,
		})
	}
	return webhookPayload{
		Username: n.username,
		Embeds:   []embed{e},
	}
}
