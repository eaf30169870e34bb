// Package agent defines the statically configured workers that receive
// handoff documents.
package agent

import "strings"

// Mode selects which backend a worker runs its handoffs on.
type Mode string

const (
	ModePrimary   Mode = "primary"
	ModeAlternate Mode = "alternate"
)

// Agent is a configured worker. Workers are fixed at startup and persist for
// the lifetime of the mailbox tree; none are created at runtime.
type Agent struct {
	Name     string   `json:"name"`
	ID       string   `json:"id,omitempty"`
	Mode     Mode     `json:"mode"`
	Keywords []string `json:"keywords,omitempty"`
}

// Slug returns the agent's mailbox directory name.
func (a Agent) Slug() string {
	return Slug(a.Name, a.ID)
}

// Slug maps a worker name and optional external id to a filesystem-safe
// directory name. The mapping is pure and stable: identical inputs yield the
// identical slug in every process, and every input produces some valid slug.
// Mailboxes outlive processes, so this function must never change shape for
// inputs it has already seen.
func Slug(name, id string) string {
	s := sanitize(name)
	if s == "" {
		s = "agent"
	}
	if frag := sanitize(id); frag != "" {
		s += "-" + frag
	}
	return s
}

// sanitize lowercases and collapses every run of non-alphanumeric characters
// to a single hyphen, with no leading or trailing hyphen.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
			continue
		}
		hyphen = true
	}
	return b.String()
}
