package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/fsmailbox"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/config"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/agent"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/handoff"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/routing"
)

// runAgents prints the configured workers with their slugs and mailbox depths.
func runAgents(args []string) error {
	fs := flag.NewFlagSet("agents", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	boxes, err := fsmailbox.New(cfg.Mailbox.Base)
	if err != nil {
		return fmt.Errorf("mailbox: %w", err)
	}
	table := routing.NewTable(routingAgents(cfg.Agents), cfg.DefaultAgent)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSLUG\tMODE\tKEYWORDS\tPENDING\tPROCESSED\tFAILED")
	for _, a := range table.Agents() {
		slug := a.Slug()
		stats, err := boxes.Stats(slug)
		if err != nil {
			return fmt.Errorf("stats %s: %w", slug, err)
		}
		mode := a.Mode
		if mode == "" {
			mode = agent.ModePrimary
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			a.Name, slug, mode, strings.Join(a.Keywords, ","),
			stats[handoff.StatePending], stats[handoff.StateProcessed], stats[handoff.StateFailed])
	}
	return w.Flush()
}
