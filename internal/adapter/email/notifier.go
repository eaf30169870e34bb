// Package email implements a notifier.Notifier over SMTP.
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/notifier"
)

const providerName = "email"

// Notifier delivers notifications as plain-text email.
type Notifier struct {
	host     string
	port     int
	from     string
	to       string
	password string
}

// NewNotifier creates an email notifier. Password may be empty for
// unauthenticated relays.
func NewNotifier(host string, port int, from, to, password string) *Notifier {
	return &Notifier{
		host:     host,
		port:     port,
		from:     from,
		to:       to,
		password: password,
	}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{}
}

// Send delivers one notification as a single message to the configured
// recipient.
func (n *Notifier) Send(_ context.Context, notification notifier.Notification) error {
	if n.host == "" || n.from == "" || n.to == "" {
		return notifier.ErrNotConfigured
	}

	subject := fmt.Sprintf("[dispatchd] %s", notification.Title)
	body := notification.Message
	if notification.Source != "" {
		body += "\r\n\r\nSource: " + notification.Source
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, n.to, subject, body)

	var auth smtp.Auth
	if n.password != "" {
		auth = smtp.PlainAuth("", n.from, n.password, n.host)
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	return smtp.SendMail(addr, auth, n.from, []string{n.to}, []byte(msg))
}
