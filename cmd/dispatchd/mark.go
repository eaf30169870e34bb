package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/fsmailbox"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/config"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/handoff"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/service"
)

// runMark moves a pending handoff document to processed or failed. The
// document may be addressed by its full path or by worker slug plus filename.
// The new path is printed to stdout.
func runMark(args []string) error {
	fs := flag.NewFlagSet("mark", flag.ContinueOnError)
	file := fs.String("file", "", "path of the pending document")
	agentSlug := fs.String("agent", "", "worker slug (requires --name)")
	name := fs.String("name", "", "document filename (requires --agent)")
	outcome := fs.String("outcome", "success", "success or failure")
	if err := fs.Parse(args); err != nil {
		return err
	}

	slug, filename := *agentSlug, *name
	if *file != "" {
		var err error
		slug, filename, err = splitMailboxPath(*file)
		if err != nil {
			return err
		}
	}
	if slug == "" || filename == "" {
		return errors.New("either --file or both --agent and --name are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	boxes, err := fsmailbox.New(cfg.Mailbox.Base)
	if err != nil {
		return fmt.Errorf("mailbox: %w", err)
	}

	marker := service.NewMarkerService(boxes)
	path, err := marker.Mark(context.Background(), slug, filename, *outcome)
	if err != nil {
		return err
	}

	fmt.Println(path)
	return nil
}

// splitMailboxPath recovers the worker slug and filename from a pending
// document path laid out as <base>/<slug>/pending/<filename>.
func splitMailboxPath(path string) (slug, filename string, err error) {
	filename = filepath.Base(path)
	stateDir := filepath.Dir(path)
	if filepath.Base(stateDir) != handoff.StatePending.Dir() {
		return "", "", fmt.Errorf("%s is not a pending mailbox path", path)
	}
	slug = filepath.Base(filepath.Dir(stateDir))
	if slug == "." || slug == string(filepath.Separator) {
		return "", "", fmt.Errorf("%s is not a mailbox path", path)
	}
	return slug, filename, nil
}
