// Package service contains application services.
package service

import (
	"context"
	"log/slog"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/notifier"
)

// notifyTarget pairs a notifier with the event sources it subscribes to.
// An empty events set subscribes the notifier to everything.
type notifyTarget struct {
	provider notifier.Notifier
	events   map[string]bool
}

// NotificationService fans notifications out to the registered notifiers,
// honoring each notifier's event subscription.
type NotificationService struct {
	targets []notifyTarget
}

// NewNotificationService creates an empty NotificationService. Notifiers are
// added with AddNotifier.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// AddNotifier registers a notifier for the given event sources (e.g.
// "dispatch.created", "cycle.failed"). A nil or empty events list subscribes
// the notifier to all events.
func (s *NotificationService) AddNotifier(p notifier.Notifier, events []string) {
	subscribed := make(map[string]bool, len(events))
	for _, e := range events {
		subscribed[e] = true
	}
	s.targets = append(s.targets, notifyTarget{provider: p, events: subscribed})
}

// Notify sends a notification to every notifier subscribed to its source.
// Errors are logged but do not interrupt delivery to other notifiers.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	for _, t := range s.targets {
		if len(t.events) > 0 && !t.events[n.Source] {
			continue
		}
		if err := t.provider.Send(ctx, n); err != nil {
			slog.Warn("notification send failed",
				"provider", t.provider.Name(),
				"title", n.Title,
				"error", err,
			)
			continue
		}
		slog.Debug("notification sent", "provider", t.provider.Name(), "title", n.Title)
	}
}

// NotifierCount returns the number of registered notifiers.
func (s *NotificationService) NotifierCount() int {
	return len(s.targets)
}
