package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventDispatchCreated = "dispatch.created"
	EventCycleCompleted  = "cycle.completed"
	EventAgentMailbox    = "agent.mailbox"
)

// DispatchCreatedEvent is broadcast when a handoff file lands in a mailbox.
type DispatchCreatedEvent struct {
	TaskID    string `json:"task_id"`
	TaskTitle string `json:"task_title"`
	AgentSlug string `json:"agent_slug"`
	Path      string `json:"path"`
}

// CycleCompletedEvent is broadcast after every orchestration cycle.
type CycleCompletedEvent struct {
	Outcome    string `json:"outcome"`
	Candidates int    `json:"candidates"`
	Skipped    int    `json:"skipped"`
}

// AgentMailboxEvent is broadcast when a handoff file changes state.
type AgentMailboxEvent struct {
	AgentSlug string `json:"agent_slug"`
	Filename  string `json:"filename"`
	State     string `json:"state"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
