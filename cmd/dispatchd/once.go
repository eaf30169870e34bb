package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/fsmailbox"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/config"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/routing"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/logger"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/resilience"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/secrets"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/service"
)

// runOnce executes a single dispatch cycle and exits. Intended for cron and
// external schedulers; continuous mode is the serve command.
func runOnce(args []string) error {
	fs := flag.NewFlagSet("once", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.NewWithCloser(cfg.Logging)
	slog.SetDefault(log)
	defer closeLog.Close()

	vault, err := secrets.NewVault(secrets.EnvLoader(secretKeys...))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}

	boxes, err := fsmailbox.New(cfg.Mailbox.Base)
	if err != nil {
		return fmt.Errorf("mailbox: %w", err)
	}
	registry, err := newRegistry(cfg, vault)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	table := routing.NewTable(routingAgents(cfg.Agents), cfg.DefaultAgent)

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	selector := service.NewSelectorService(registry, breaker, cfg.Dispatch.ActionableStatuses)
	orch := service.NewOrchestratorService(selector, registry, boxes, table, cfg.Dispatch)
	orch.SetNotifications(buildNotifications(cfg.Notifiers, vault))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := orch.DispatchOnce(ctx)
	if err != nil {
		return err
	}

	slog.Info("cycle finished",
		"outcome", res.Outcome,
		"candidates", res.Candidates,
		"skipped", res.Skipped,
		"path", res.Path,
	)
	return nil
}
