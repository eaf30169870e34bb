// Package mailbox defines the port owning the per-worker handoff directories.
// Every mutation of a mailbox goes through this interface; no other code may
// touch the directory tree.
package mailbox

import (
	"time"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/handoff"
)

// Entry describes one document inside a mailbox directory.
type Entry struct {
	Name    string        `json:"name"`
	State   handoff.State `json:"state"`
	Size    int64         `json:"size"`
	ModTime time.Time     `json:"mod_time"`
}

// Store is the port interface for a worker-mailbox tree. Implementations
// guarantee that a file is never observable under its final name before its
// content is fully written, and that moves between states are atomic on a
// single volume.
type Store interface {
	// Ensure idempotently creates the pending, processed, and failed
	// directories for slug.
	Ensure(slug string) error

	// Create writes content under its final filename in the given state and
	// returns the absolute path. The file appears only after the content is
	// fully durable; a name collision returns domain.ErrConflict, and racing
	// writers of the same name get exactly one winner.
	Create(slug string, state handoff.State, filename string, content []byte) (string, error)

	// List returns the directory's documents sorted by name. In-progress
	// writes and foreign dotfiles are never yielded.
	List(slug string, state handoff.State) ([]Entry, error)

	// Read returns the content of one document.
	Read(slug string, state handoff.State, filename string) ([]byte, error)

	// Move relocates a document between states and returns its new path.
	// Content and filename are preserved; an occupied destination returns
	// domain.ErrConflict and a missing source domain.ErrNotFound; racing
	// movers get exactly one winner. Same volume only.
	Move(slug, filename string, from, to handoff.State) (string, error)

	// Locate scans pending, processed, and failed for a document whose name
	// carries the given task-id fragment. Returns domain.ErrNotFound when no
	// state holds one.
	Locate(slug, fragment string) (string, handoff.State, error)

	// Stats counts documents per state for one worker.
	Stats(slug string) (map[handoff.State]int, error)

	// Agents lists the worker slugs present under the mailbox base.
	Agents() ([]string, error)
}
