package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	dotel "github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/otel"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/task"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/cache"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/taskregistry"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/resilience"
)

// unfilteredOverfetch widens the final unfiltered query. Registries return
// closed rows too on that tier, so the page needs headroom for client-side
// filtering to still fill the limit.
const unfilteredOverfetch = 5

// SelectorService picks the next actionable tasks from the registry. Queries
// run in three tiers: the configured statuses, their alternate spellings when
// the first tier returns nothing, and finally an unfiltered query whose rows
// are filtered client-side. A tier that fails transiently degrades to the
// next one; only a failure of the last tier surfaces as an error.
type SelectorService struct {
	registry taskregistry.Provider
	breaker  *resilience.Breaker
	statuses []string

	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *dotel.Metrics
}

// NewSelectorService creates a SelectorService querying registry through the
// given circuit breaker for the configured actionable statuses.
func NewSelectorService(registry taskregistry.Provider, breaker *resilience.Breaker, statuses []string) *SelectorService {
	return &SelectorService{
		registry: registry,
		breaker:  breaker,
		statuses: statuses,
	}
}

// SetCache enables the read-through cache used by Preview. Cached selections
// may be stale; the dispatch path calls NextActionable directly and re-checks
// the mailbox before writing, so staleness never double-dispatches.
func (s *SelectorService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.cacheTTL = ttl
}

// SetMetrics attaches OpenTelemetry instruments.
func (s *SelectorService) SetMetrics(m *dotel.Metrics) {
	s.metrics = m
}

// NextActionable returns up to limit open tasks ordered by priority rank
// ascending, then most recently edited first. Closed and archived rows are
// excluded on every tier regardless of what the registry filter matched.
func (s *SelectorService) NextActionable(ctx context.Context, limit int) ([]task.Task, error) {
	if limit < 1 {
		limit = 1
	}

	tasks, err := s.query(ctx, s.statuses, limit)
	if err != nil {
		slog.Warn("status-filtered query failed, falling back",
			"statuses", s.statuses, "error", err)
	}
	if len(tasks) == 0 {
		if alts := synonymStatuses(s.statuses); len(alts) > 0 {
			tasks, err = s.query(ctx, alts, limit)
			if err != nil {
				slog.Warn("synonym-filtered query failed, falling back", "error", err)
			}
		}
	}
	if len(tasks) == 0 {
		tasks, err = s.query(ctx, nil, limit*unfilteredOverfetch)
		if err != nil {
			return nil, fmt.Errorf("query registry: %w", err)
		}
	}

	open := tasks[:0]
	for _, t := range tasks {
		if t.Archived || task.StatusClosed(t.Status) {
			continue
		}
		open = append(open, t)
	}
	task.SortActionable(open)
	if len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

// Preview is NextActionable behind the read-through cache. It serves the
// status API, where a selection a few seconds old is acceptable.
func (s *SelectorService) Preview(ctx context.Context, limit int) ([]task.Task, error) {
	if s.cache == nil {
		return s.NextActionable(ctx, limit)
	}

	key := fmt.Sprintf("tasks:next:%d", limit)
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var tasks []task.Task
		if jerr := json.Unmarshal(raw, &tasks); jerr == nil {
			return tasks, nil
		}
		_ = s.cache.Delete(ctx, key)
	}

	tasks, err := s.NextActionable(ctx, limit)
	if err != nil {
		return nil, err
	}
	if raw, merr := json.Marshal(tasks); merr == nil {
		_ = s.cache.Set(ctx, key, raw, s.cacheTTL)
	}
	return tasks, nil
}

func (s *SelectorService) query(ctx context.Context, statuses []string, limit int) ([]task.Task, error) {
	ctx, span := dotel.StartRegistrySpan(ctx, "query")
	defer span.End()

	start := time.Now()
	var tasks []task.Task
	err := s.breaker.Execute(func() error {
		var qerr error
		tasks, qerr = s.registry.QueryTasks(ctx, taskregistry.Query{Statuses: statuses, Limit: limit})
		return qerr
	})
	if s.metrics != nil {
		s.metrics.RegistryDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// synonymStatuses expands the configured statuses into their alternate
// spellings, excluding any spelling already configured.
func synonymStatuses(statuses []string) []string {
	seen := make(map[string]struct{}, len(statuses))
	for _, st := range statuses {
		seen[st] = struct{}{}
	}
	var alts []string
	for _, st := range statuses {
		for _, alt := range task.AlternateSpellings(st) {
			if _, dup := seen[alt]; dup {
				continue
			}
			seen[alt] = struct{}{}
			alts = append(alts, alt)
		}
	}
	return alts
}
