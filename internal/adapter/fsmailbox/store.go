// Package fsmailbox implements the mailbox port on a local filesystem.
//
// Layout: <base>/<workerSlug>/{pending,processed,failed}/<filename>. Both
// publishing and state transitions rely on same-volume hard links, which
// refuse an existing target; a base directory on network- or cloud-synced
// storage breaks the at-most-one-dispatch guarantee and is unsupported.
package fsmailbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/handoff"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/mailbox"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store is a filesystem-backed mailbox tree. Nothing under base is ever
// deleted; documents only move between state directories.
type Store struct {
	base string
}

// New returns a Store rooted at base, creating the directory if absent.
func New(base string) (*Store, error) {
	if base == "" {
		return nil, errors.New("fsmailbox: base directory required")
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve mailbox base: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("create mailbox base: %w", err)
	}
	return &Store{base: abs}, nil
}

// Base returns the root of the mailbox tree.
func (s *Store) Base() string { return s.base }

// Ensure idempotently creates the three state directories for slug.
func (s *Store) Ensure(slug string) error {
	if err := validSlug(slug); err != nil {
		return err
	}
	for _, st := range handoff.States() {
		if err := os.MkdirAll(s.dir(slug, st), dirPerm); err != nil {
			return fmt.Errorf("ensure mailbox %s/%s: %w", slug, st, err)
		}
	}
	return nil
}

// Create writes content to a dot-prefixed temp file in the target directory,
// fsyncs it, then hard-links it under the final filename. The document is
// never observable under its final name before the content is durable, and
// link refuses an existing target, so exactly one of any set of racing
// writers publishes; the rest get domain.ErrConflict and the winner's file
// is left untouched.
func (s *Store) Create(slug string, state handoff.State, filename string, content []byte) (string, error) {
	if err := validSlug(slug); err != nil {
		return "", err
	}
	if err := validName(filename); err != nil {
		return "", err
	}
	if !state.Valid() {
		return "", fmt.Errorf("fsmailbox: invalid state %q", state)
	}
	dir := s.dir(slug, state)
	final := filepath.Join(dir, filename)

	tmp, err := os.CreateTemp(dir, "."+filename+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", filename, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return "", fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return "", fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Link(tmpName, final); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create %s: %w", filename, domain.ErrConflict)
		}
		return "", fmt.Errorf("publish %s: %w", filename, err)
	}
	if err := fsyncDir(dir); err != nil {
		return "", fmt.Errorf("sync dir %s: %w", dir, err)
	}
	return final, nil
}

// List returns the state directory's documents in name order, which for
// handoff filenames is creation order. Dotfiles cover in-progress temp
// writes and are skipped, as are subdirectories. A missing directory lists
// as empty.
func (s *Store) List(slug string, state handoff.State) ([]mailbox.Entry, error) {
	if err := validSlug(slug); err != nil {
		return nil, err
	}
	dir := s.dir(slug, state)
	dirents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	out := make([]mailbox.Entry, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Renamed away between readdir and stat.
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		out = append(out, mailbox.Entry{
			Name:    de.Name(),
			State:   state,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// Read returns the content of one document.
func (s *Store) Read(slug string, state handoff.State, filename string) ([]byte, error) {
	if err := validSlug(slug); err != nil {
		return nil, err
	}
	if err := validName(filename); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir(slug, state), filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s/%s/%s: %w", slug, state, filename, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return data, nil
}

// Move relocates a document between states, preserving name and content. An
// occupied destination returns domain.ErrConflict and a missing source
// domain.ErrNotFound; the document never settles in two states at once. The
// transition is atomic only on a single volume; EXDEV from a cross-device
// base surfaces unchanged.
func (s *Store) Move(slug, filename string, from, to handoff.State) (string, error) {
	if err := validSlug(slug); err != nil {
		return "", err
	}
	if err := validName(filename); err != nil {
		return "", err
	}
	if !from.Valid() || !to.Valid() {
		return "", fmt.Errorf("fsmailbox: invalid transition %q -> %q", from, to)
	}
	src := filepath.Join(s.dir(slug, from), filename)
	dst := filepath.Join(s.dir(slug, to), filename)

	// Link publishes at the destination without consuming the source and
	// refuses an existing target.
	if err := os.Link(src, dst); err != nil {
		switch {
		case errors.Is(err, os.ErrExist):
			return "", fmt.Errorf("move %s to %s: %w", filename, to, domain.ErrConflict)
		case errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("move %s from %s: %w", filename, from, domain.ErrNotFound)
		}
		return "", fmt.Errorf("move %s: %w", filename, err)
	}
	// Removing the source decides a race between movers. The one that finds
	// it already gone withdraws its destination link.
	if err := os.Remove(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_ = os.Remove(dst)
			return "", fmt.Errorf("move %s from %s: %w", filename, from, domain.ErrNotFound)
		}
		return "", fmt.Errorf("unlink %s: %w", src, err)
	}
	if err := fsyncDir(s.dir(slug, to)); err != nil {
		return "", fmt.Errorf("sync dir %s: %w", s.dir(slug, to), err)
	}
	if err := fsyncDir(s.dir(slug, from)); err != nil {
		return "", fmt.Errorf("sync dir %s: %w", s.dir(slug, from), err)
	}
	return dst, nil
}

// Locate scans the three states for a document carrying the task-id
// fragment. First match wins; states are scanned in pending, processed,
// failed order.
func (s *Store) Locate(slug, fragment string) (string, handoff.State, error) {
	if fragment == "" {
		return "", "", errors.New("fsmailbox: empty fragment")
	}
	suffix := handoff.FragmentSuffix(fragment)
	for _, st := range handoff.States() {
		entries, err := s.List(slug, st)
		if err != nil {
			return "", "", err
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name, suffix) {
				return filepath.Join(s.dir(slug, st), e.Name), st, nil
			}
		}
	}
	return "", "", domain.ErrNotFound
}

// Stats counts documents per state for one worker.
func (s *Store) Stats(slug string) (map[handoff.State]int, error) {
	out := make(map[handoff.State]int, 3)
	for _, st := range handoff.States() {
		entries, err := s.List(slug, st)
		if err != nil {
			return nil, err
		}
		out[st] = len(entries)
	}
	return out, nil
}

// Agents lists the worker slugs present under the mailbox base.
func (s *Store) Agents() ([]string, error) {
	dirents, err := os.ReadDir(s.base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", s.base, err)
	}
	slugs := make([]string, 0, len(dirents))
	for _, de := range dirents {
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		slugs = append(slugs, de.Name())
	}
	return slugs, nil
}

func (s *Store) dir(slug string, state handoff.State) string {
	return filepath.Join(s.base, slug, state.Dir())
}

func validSlug(slug string) error {
	switch {
	case slug == "":
		return errors.New("fsmailbox: empty slug")
	case strings.ContainsAny(slug, `/\`):
		return fmt.Errorf("fsmailbox: slug %q contains a path separator", slug)
	case strings.HasPrefix(slug, "."):
		return fmt.Errorf("fsmailbox: slug %q must not start with a dot", slug)
	}
	return nil
}

func validName(name string) error {
	switch {
	case name == "":
		return errors.New("fsmailbox: empty filename")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("fsmailbox: filename %q contains a path separator", name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("fsmailbox: filename %q is reserved for temp files", name)
	}
	return nil
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
