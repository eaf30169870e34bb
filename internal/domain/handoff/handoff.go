// Package handoff defines the handoff document written into worker mailboxes
// and the filename scheme that orders and deduplicates it.
package handoff

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/agent"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/task"
)

// State is a document's lifecycle position, given solely by which mailbox
// directory holds it.
type State string

const (
	StatePending   State = "pending"
	StateProcessed State = "processed"
	StateFailed    State = "failed"
)

// States enumerates the lifecycle directories in scan order.
func States() []State {
	return []State{StatePending, StateProcessed, StateFailed}
}

// Dir returns the mailbox directory name for the state.
func (s State) Dir() string { return string(s) }

// Valid reports whether s names one of the three lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateProcessed, StateFailed:
		return true
	}
	return false
}

// Document is the canonical handoff record. Consumers run long-lived,
// independently versioned code, so schema evolution is additive only: fields
// may be added but never renamed, removed, or repurposed.
type Document struct {
	DispatchID   string        `json:"dispatch_id"`
	TaskID       string        `json:"task_id"`
	TaskTitle    string        `json:"task_title"`
	TaskURL      string        `json:"task_url,omitempty"`
	TaskStatus   string        `json:"task_status"`
	Priority     task.Priority `json:"priority,omitempty"`
	AgentName    string        `json:"agent_name"`
	AgentID      string        `json:"agent_id,omitempty"`
	Mode         agent.Mode    `json:"mode"`
	Instructions string        `json:"instructions,omitempty"`
	Archive      bool          `json:"archive"`
	CreatedAt    time.Time     `json:"created_at"`
}

// New builds the document for dispatching t to the routed worker. The
// timestamp is truncated to whole seconds in UTC so created_at round-trips
// through the filename.
func New(t task.Task, a agent.Agent, instructions string, archive bool, now time.Time) Document {
	return Document{
		DispatchID:   uuid.NewString(),
		TaskID:       t.ID,
		TaskTitle:    t.Title,
		TaskURL:      t.URL,
		TaskStatus:   t.Status,
		Priority:     t.Priority,
		AgentName:    a.Name,
		AgentID:      a.ID,
		Mode:         a.Mode,
		Instructions: instructions,
		Archive:      archive,
		CreatedAt:    now.UTC().Truncate(time.Second),
	}
}

// Validate checks that a Document carries the fields consumers depend on.
func (d Document) Validate() error {
	if d.TaskID == "" {
		return errors.New("task_id is required")
	}
	if d.AgentName == "" {
		return errors.New("agent_name is required")
	}
	if d.CreatedAt.IsZero() {
		return errors.New("created_at is required")
	}
	return nil
}

// timestampLayout is fixed width so lexicographic filename order matches
// chronological order.
const timestampLayout = "20060102T150405Z"

const nameInfix = "__HANDOFF__"

// maxTitleLen bounds the sanitized title segment of a filename.
const maxTitleLen = 50

// Filename derives the document's mailbox filename:
//
//	<utc timestamp>__HANDOFF__<sanitized title>__<task id fragment>.json
//
// The timestamp segment leads so a sorted directory listing reads in creation
// order. The trailing fragment is the dedup key shared with task.Fragment.
func (d Document) Filename() string {
	return fmt.Sprintf("%s%s%s__%s.json",
		d.CreatedAt.UTC().Format(timestampLayout),
		nameInfix,
		sanitizeTitle(d.TaskTitle),
		task.Fragment(d.TaskID),
	)
}

// FragmentSuffix returns the filename suffix that identifies every handoff
// for the given task id fragment, regardless of timestamp or title.
func FragmentSuffix(fragment string) string {
	return "__" + fragment + ".json"
}

// NameInfo holds the segments recovered from a handoff filename.
type NameInfo struct {
	CreatedAt time.Time
	Title     string
	Fragment  string
}

// ParseName splits a handoff filename back into its segments. Foreign files
// in a mailbox directory fail to parse and are reported, not skipped
// silently.
func ParseName(name string) (NameInfo, error) {
	base, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return NameInfo{}, fmt.Errorf("handoff name %q: missing .json suffix", name)
	}
	ts, rest, ok := strings.Cut(base, nameInfix)
	if !ok {
		return NameInfo{}, fmt.Errorf("handoff name %q: missing %s marker", name, strings.Trim(nameInfix, "_"))
	}
	created, err := time.Parse(timestampLayout, ts)
	if err != nil {
		return NameInfo{}, fmt.Errorf("handoff name %q: bad timestamp: %w", name, err)
	}
	title, fragment, ok := strings.Cut(rest, "__")
	if !ok || fragment == "" {
		return NameInfo{}, fmt.Errorf("handoff name %q: missing task fragment", name)
	}
	return NameInfo{CreatedAt: created, Title: title, Fragment: fragment}, nil
}

// sanitizeTitle reduces a task title to a bounded, filesystem-safe segment:
// lowercase alphanumerics with single hyphens, at most maxTitleLen bytes.
func sanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(maxTitleLen)
	hyphen := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			need := 1
			if hyphen && b.Len() > 0 {
				need = 2
			}
			if b.Len()+need > maxTitleLen {
				break
			}
			if need == 2 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
			continue
		}
		hyphen = true
	}
	s := strings.TrimRight(b.String(), "-")
	if s == "" {
		return "task"
	}
	return s
}
