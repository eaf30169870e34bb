// Package task defines the work-item snapshot pulled from the task registry.
package task

import (
	"sort"
	"strings"
	"time"
)

// Priority is the registry's priority label for a task.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// rankUnknown sorts unrecognized or missing priorities after every known label.
const rankUnknown = 99

// Rank returns the dispatch rank of a priority label, lowest first.
func (p Priority) Rank() int {
	switch strings.ToLower(strings.TrimSpace(string(p))) {
	case "critical":
		return 0
	case "high":
		return 1
	case "medium":
		return 2
	case "low":
		return 3
	default:
		return rankUnknown
	}
}

// Task is an immutable snapshot of a registry work item. Once captured into a
// handoff document the snapshot is never refreshed.
type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url,omitempty"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status"`
	Priority     Priority  `json:"priority,omitempty"`
	Type         string    `json:"type,omitempty"`
	AgentName    string    `json:"agent_name,omitempty"`
	AgentID      string    `json:"agent_id,omitempty"`
	Archived     bool      `json:"archived,omitempty"`
	LastEditedAt time.Time `json:"last_edited_at"`
}

// closedStatuses is the terminal vocabulary in canonical spelling.
var closedStatuses = map[string]struct{}{
	"done":      {},
	"complete":  {},
	"completed": {},
	"closed":    {},
	"cancelled": {},
	"canceled":  {},
	"archived":  {},
	"wont do":   {},
	"duplicate": {},
}

// StatusClosed reports whether a status names a terminal state. Matching is
// insensitive to case and to hyphen/space/underscore spelling.
func StatusClosed(status string) bool {
	_, ok := closedStatuses[canonicalStatus(status)]
	return ok
}

// canonicalStatus lowercases and folds hyphen/underscore runs to single spaces.
func canonicalStatus(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '-', '_', '\t':
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AlternateSpellings returns synonym spellings of a status name for fallback
// registry queries: hyphen/space swapped, plus lower- and title-cased forms.
// The input spelling itself is not included.
func AlternateSpellings(status string) []string {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil
	}
	seen := map[string]struct{}{status: {}}
	var out []string
	add := func(s string) {
		if _, dup := seen[s]; dup || s == "" {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	variants := []string{
		strings.ReplaceAll(status, " ", "-"),
		strings.ReplaceAll(status, "-", " "),
	}
	for _, v := range variants {
		add(v)
		add(strings.ToLower(v))
		add(titleCase(v))
	}
	add(strings.ToLower(status))
	add(titleCase(status))
	return out
}

// titleCase uppercases the first letter of each space- or hyphen-separated word.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	startWord := true
	for _, r := range strings.ToLower(s) {
		if startWord && r >= 'a' && r <= 'z' {
			b.WriteRune(r - 'a' + 'A')
		} else {
			b.WriteRune(r)
		}
		startWord = r == ' ' || r == '-'
	}
	return b.String()
}

// fragmentLen is the number of trailing id characters kept for filenames and
// dedup keys.
const fragmentLen = 8

// Fragment derives the stable dedup key from an external task id: the last
// eight alphanumeric characters, lowercased. Shorter ids are used whole.
// Identical ids always yield the identical fragment.
func Fragment(id string) string {
	kept := make([]rune, 0, len(id))
	for _, r := range strings.ToLower(id) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			kept = append(kept, r)
		}
	}
	if len(kept) <= fragmentLen {
		return string(kept)
	}
	return string(kept[len(kept)-fragmentLen:])
}

// SortActionable orders tasks for dispatch: priority rank ascending, then most
// recently edited first. The sort is stable so registry order breaks residual
// ties.
func SortActionable(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := tasks[i].Priority.Rank(), tasks[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return tasks[i].LastEditedAt.After(tasks[j].LastEditedAt)
	})
}
