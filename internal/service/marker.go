package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/ws"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/handoff"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/broadcast"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/mailbox"
)

// MarkerService moves consumed handoff documents out of pending once a
// worker reports how processing went.
type MarkerService struct {
	boxes mailbox.Store
	hub   broadcast.Broadcaster
}

// NewMarkerService creates a MarkerService over the mailbox tree.
func NewMarkerService(boxes mailbox.Store) *MarkerService {
	return &MarkerService{boxes: boxes}
}

// SetBroadcaster attaches a hub for mailbox change events.
func (s *MarkerService) SetBroadcaster(h broadcast.Broadcaster) {
	s.hub = h
}

// Mark moves a pending document to processed (success) or failed (failure)
// and returns its new path. Content and filename are preserved by the move.
func (s *MarkerService) Mark(ctx context.Context, slug, filename, outcome string) (string, error) {
	to, err := stateForOutcome(outcome)
	if err != nil {
		return "", err
	}
	path, err := s.boxes.Move(slug, filename, handoff.StatePending, to)
	if err != nil {
		return "", fmt.Errorf("mark %s/%s: %w", slug, filename, err)
	}
	slog.Info("handoff marked", "agent", slug, "file", filename, "state", to.Dir())
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventAgentMailbox, ws.AgentMailboxEvent{
			AgentSlug: slug,
			Filename:  filename,
			State:     to.Dir(),
		})
	}
	return path, nil
}

// stateForOutcome maps a reported outcome to its destination state.
func stateForOutcome(outcome string) (handoff.State, error) {
	switch outcome {
	case "success":
		return handoff.StateProcessed, nil
	case "failure":
		return handoff.StateFailed, nil
	default:
		return "", fmt.Errorf("outcome %q must be success or failure", outcome)
	}
}
