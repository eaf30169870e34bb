package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dotel "github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/otel"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/ws"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/config"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/handoff"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/routing"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/task"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/broadcast"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/mailbox"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/notifier"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/taskregistry"
)

// Outcome classifies how a dispatch cycle ended.
type Outcome string

const (
	// OutcomeDispatched means a handoff document was written.
	OutcomeDispatched Outcome = "dispatched"
	// OutcomeDuplicate means a document for the chosen task already existed.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeSkipped means every candidate was skipped without a dispatch.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeIdle means the registry offered no actionable tasks.
	OutcomeIdle Outcome = "idle"
)

// CycleResult summarizes one dispatch cycle.
type CycleResult struct {
	Outcome    Outcome `json:"outcome"`
	TaskID     string  `json:"task_id,omitempty"`
	TaskTitle  string  `json:"task_title,omitempty"`
	AgentSlug  string  `json:"agent_slug,omitempty"`
	Path       string  `json:"path,omitempty"`
	Candidates int     `json:"candidates"`
	Skipped    int     `json:"skipped"`
}

// OrchestratorService runs the dispatch pipeline: select candidate tasks,
// resolve each to a worker, and write at most one handoff document per cycle.
// Candidates that cannot be dispatched are skipped and the next is tried; an
// existing document for a candidate ends the cycle as a duplicate without
// touching the mailbox.
type OrchestratorService struct {
	selector *SelectorService
	registry taskregistry.Provider
	boxes    mailbox.Store
	table    *routing.Table
	cfg      config.Dispatch

	hub     broadcast.Broadcaster
	notify  *NotificationService
	metrics *dotel.Metrics
}

// NewOrchestratorService wires the dispatch pipeline. Broadcasting,
// notifications, and metrics are optional and attached with the Set methods.
func NewOrchestratorService(selector *SelectorService, registry taskregistry.Provider, boxes mailbox.Store, table *routing.Table, cfg config.Dispatch) *OrchestratorService {
	return &OrchestratorService{
		selector: selector,
		registry: registry,
		boxes:    boxes,
		table:    table,
		cfg:      cfg,
	}
}

// SetBroadcaster attaches a hub for real-time dispatch events.
func (s *OrchestratorService) SetBroadcaster(h broadcast.Broadcaster) {
	s.hub = h
}

// SetNotifications attaches outbound notification fan-out.
func (s *OrchestratorService) SetNotifications(n *NotificationService) {
	s.notify = n
}

// SetMetrics attaches OpenTelemetry instruments.
func (s *OrchestratorService) SetMetrics(m *dotel.Metrics) {
	s.metrics = m
}

// DispatchOnce runs a single dispatch cycle. The returned error is reserved
// for a full selection failure or context cancellation; per-task problems
// surface as skips inside the result instead.
func (s *OrchestratorService) DispatchOnce(ctx context.Context) (*CycleResult, error) {
	return s.cycle(ctx, "manual")
}

func (s *OrchestratorService) cycle(ctx context.Context, trigger string) (*CycleResult, error) {
	ctx, span := dotel.StartCycleSpan(ctx, trigger)
	defer span.End()

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.CycleDuration.Record(ctx, time.Since(start).Seconds())
		}
	}()

	candidates, err := s.selector.NextActionable(ctx, s.cfg.SelectLimit)
	if err != nil {
		s.notifyEvent(ctx, "cycle.failed", "error", "Task selection failed", err.Error())
		return nil, fmt.Errorf("select tasks: %w", err)
	}

	res := &CycleResult{Outcome: OutcomeIdle, Candidates: len(candidates)}
	for _, t := range candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		route, rerr := s.table.Resolve(t)
		if rerr != nil {
			slog.Warn("task unroutable, skipping", "task_id", t.ID, "title", t.Title, "error", rerr)
			s.notifyEvent(ctx, "dispatch.unresolvable", "warning", "Task skipped",
				fmt.Sprintf("No worker resolves for %q (%s).", t.Title, t.ID))
			s.countSkip(ctx, res)
			continue
		}

		slug := route.Agent.Slug()
		if eerr := s.boxes.Ensure(slug); eerr != nil {
			slog.Error("mailbox ensure failed, skipping task", "agent", slug, "error", eerr)
			s.countSkip(ctx, res)
			continue
		}

		frag := task.Fragment(t.ID)
		existing, st, lerr := s.boxes.Locate(slug, frag)
		if lerr == nil {
			return s.completeDuplicate(ctx, res, t, slug, existing, st)
		}
		if !errors.Is(lerr, domain.ErrNotFound) {
			slog.Error("dedup scan failed, skipping task", "agent", slug, "error", lerr)
			s.countSkip(ctx, res)
			continue
		}

		doc := handoff.New(t, route.Agent, s.cfg.Instructions, s.cfg.ArchiveAfter, time.Now().UTC())
		if verr := doc.Validate(); verr != nil {
			slog.Error("handoff document invalid, skipping task", "task_id", t.ID, "error", verr)
			s.countSkip(ctx, res)
			continue
		}
		content, merr := json.MarshalIndent(doc, "", "  ")
		if merr != nil {
			slog.Error("handoff encode failed, skipping task", "task_id", t.ID, "error", merr)
			s.countSkip(ctx, res)
			continue
		}

		dctx, dspan := dotel.StartDispatchSpan(ctx, t.ID, slug)
		path, cerr := s.boxes.Create(slug, handoff.StatePending, doc.Filename(), content)
		if cerr != nil {
			dspan.End()
			if errors.Is(cerr, domain.ErrConflict) {
				// Lost a same-second race with another dispatcher. The
				// winner's file is authoritative.
				if p, rst, e := s.boxes.Locate(slug, frag); e == nil {
					return s.completeDuplicate(ctx, res, t, slug, p, rst)
				}
			}
			slog.Error("handoff write failed, skipping task",
				"task_id", t.ID, "agent", slug, "error", cerr)
			s.countSkip(ctx, res)
			continue
		}

		if uerr := s.updateStatus(dctx, t.ID); uerr != nil {
			slog.Warn("status update failed, handoff file remains authoritative",
				"task_id", t.ID, "status", s.cfg.DispatchedStatus, "error", uerr)
		}
		dspan.End()

		if s.metrics != nil {
			s.metrics.DispatchesCreated.Add(ctx, 1)
		}
		slog.Info("task dispatched",
			"task_id", t.ID, "title", t.Title, "agent", slug,
			"reason", string(route.Reason), "path", path)

		res.Outcome = OutcomeDispatched
		res.TaskID = t.ID
		res.TaskTitle = t.Title
		res.AgentSlug = slug
		res.Path = path

		if s.hub != nil {
			s.hub.BroadcastEvent(ctx, ws.EventDispatchCreated, ws.DispatchCreatedEvent{
				TaskID:    t.ID,
				TaskTitle: t.Title,
				AgentSlug: slug,
				Path:      path,
			})
		}
		s.notifyEvent(ctx, "dispatch.created", "success", "Task dispatched",
			fmt.Sprintf("%q handed off to %s.", t.Title, slug))
		s.broadcastCycle(ctx, res)
		return res, nil
	}

	if res.Skipped > 0 {
		res.Outcome = OutcomeSkipped
	} else if s.metrics != nil {
		s.metrics.CyclesIdle.Add(ctx, 1)
	}
	s.broadcastCycle(ctx, res)
	return res, nil
}

// Run executes dispatch cycles at the configured interval until ctx is
// cancelled or, when MaxIdleCycles is positive, until that many consecutive
// cycles end without a dispatch. Cycle failures are logged and counted as
// idle; the loop itself keeps going.
func (s *OrchestratorService) Run(ctx context.Context) error {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("dispatch loop started",
		"interval", interval.String(),
		"max_idle_cycles", s.cfg.MaxIdleCycles,
		"select_limit", s.cfg.SelectLimit)

	idle := 0
	for {
		res, err := s.cycle(ctx, "interval")
		if ctx.Err() != nil {
			slog.Info("dispatch loop stopping", "reason", ctx.Err())
			return nil
		}
		switch {
		case err != nil:
			slog.Warn("dispatch cycle failed", "error", err)
			idle++
		case res.Outcome == OutcomeDispatched:
			idle = 0
		default:
			idle++
		}
		if s.cfg.MaxIdleCycles > 0 && idle >= s.cfg.MaxIdleCycles {
			slog.Info("idle limit reached, dispatch loop stopping",
				"idle_cycles", idle, "max_idle_cycles", s.cfg.MaxIdleCycles)
			return nil
		}

		select {
		case <-ctx.Done():
			slog.Info("dispatch loop stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
		}
	}
}

func (s *OrchestratorService) completeDuplicate(ctx context.Context, res *CycleResult, t task.Task, slug, path string, state handoff.State) (*CycleResult, error) {
	slog.Info("handoff already exists, dispatch suppressed",
		"task_id", t.ID, "agent", slug, "state", state.Dir(), "path", path)
	if s.metrics != nil {
		s.metrics.DispatchDuplicates.Add(ctx, 1)
	}
	res.Outcome = OutcomeDuplicate
	res.TaskID = t.ID
	res.TaskTitle = t.Title
	res.AgentSlug = slug
	res.Path = path
	s.broadcastCycle(ctx, res)
	return res, nil
}

// updateStatus moves the registry row to the configured dispatched status.
// The handoff file already on disk stays the source of truth, so the caller
// only warns on failure.
func (s *OrchestratorService) updateStatus(ctx context.Context, taskID string) error {
	if s.cfg.DispatchedStatus == "" {
		return nil
	}
	ctx, span := dotel.StartRegistrySpan(ctx, "update_status")
	defer span.End()
	return s.registry.UpdateStatus(ctx, taskID, s.cfg.DispatchedStatus)
}

func (s *OrchestratorService) countSkip(ctx context.Context, res *CycleResult) {
	if s.metrics != nil {
		s.metrics.DispatchesSkipped.Add(ctx, 1)
	}
	res.Skipped++
}

func (s *OrchestratorService) notifyEvent(ctx context.Context, source, level, title, message string) {
	if s.notify == nil {
		return
	}
	s.notify.Notify(ctx, notifier.Notification{
		Title:   title,
		Message: message,
		Level:   level,
		Source:  source,
	})
}

func (s *OrchestratorService) broadcastCycle(ctx context.Context, res *CycleResult) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(ctx, ws.EventCycleCompleted, ws.CycleCompletedEvent{
		Outcome:    string(res.Outcome),
		Candidates: res.Candidates,
		Skipped:    res.Skipped,
	})
}
