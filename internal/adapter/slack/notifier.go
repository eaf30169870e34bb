// Package slack implements a notifier.Notifier for Slack webhooks.
package slack

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

const providerName = "slack"

const sendTimeout = 10 * time.Second

// Notifier delivers dispatch events to a Slack channel via incoming webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// NewNotifier creates a Slack notifier posting to webhookURL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: sendTimeout},
	}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{
		RichFormatting: true,
		Threads:        false,
	}
}

// message is a Slack Block Kit payload. Text is the plain fallback shown in
// clients that do not render blocks.
type message struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks"`
}

type block struct {
	Type     string     `json:"type"`
	Text     *textBlock `json:"text,omitempty"`
	Elements []textBlock `json:"elements,omitempty"`
}

type textBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// levelEmoji maps notification levels to Slack emoji shortcodes.
var levelEmoji = map[string]string{
	"success": ":white_check_mark:",
	"warning": ":warning:",
	"error":   ":x:",
	"info":    ":information_source:",
}

func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	body, err := json.Marshal(buildMessage(notification))
	if err != nil {
		return fmt.Errorf("slack: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: deliver webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

func buildMessage(notification notifier.Notification) message {
	emoji, ok := levelEmoji[notification.Level]
	if !ok {
		emoji = levelEmoji["info"]
	}
	msg := message{
		Text: fmt.Sprintf("%s: %s", notification.Title, notification.Message),
		Blocks: []block{
			{Type: "header", Text: &textBlock{Type: "plain_text", Text: notification.Title}},
			{Type: "section", Text: &textBlock{
				Type: "mrkdwn",
				Text: fmt.Sprintf("%s %s", emoji, notification.Message),
			}},
		},
	}
	if notification.Source != "" {
		msg.Blocks = append(msg.Blocks, block{
			Type:     "context",
			Elements: []textBlock{{Type: "mrkdwn", Text: "event: `" + notification.Source + "`"}},
		})
	}
	return msg
}
