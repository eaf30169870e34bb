package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/agent"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/handoff"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/routing"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/task"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/mailbox"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/service"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// previewLimitCap bounds the task preview page regardless of the requested
// limit.
const previewLimitCap = 100

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Selector     *service.SelectorService
	Orchestrator *service.OrchestratorService
	Marker       *service.MarkerService
	Boxes        mailbox.Store
	Table        *routing.Table

	// SelectLimit is the preview page size when the request names none.
	SelectLimit int
	Version     string
}

// GetVersion handles GET /api/v1/
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.Version})
}

// agentSummary is one configured worker plus its mailbox counts.
type agentSummary struct {
	Name     string         `json:"name"`
	Slug     string         `json:"slug"`
	Mode     agent.Mode     `json:"mode,omitempty"`
	Keywords []string       `json:"keywords,omitempty"`
	Mailbox  map[string]int `json:"mailbox"`
}

// ListAgents handles GET /api/v1/agents
func (h *Handlers) ListAgents(w http.ResponseWriter, _ *http.Request) {
	agents := h.Table.Agents()
	out := make([]agentSummary, 0, len(agents))
	for _, a := range agents {
		slug := a.Slug()
		stats, err := h.Boxes.Stats(slug)
		if err != nil {
			writeInternalError(w, err)
			return
		}
		counts := make(map[string]int, len(stats))
		for st, n := range stats {
			counts[st.Dir()] = n
		}
		out = append(out, agentSummary{
			Name:     a.Name,
			Slug:     slug,
			Mode:     a.Mode,
			Keywords: a.Keywords,
			Mailbox:  counts,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetAgentMailbox handles GET /api/v1/agents/{slug}/mailbox
func (h *Handlers) GetAgentMailbox(w http.ResponseWriter, r *http.Request) {
	slug := urlParam(r, "slug")
	if err := sanitizeName(slug); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := handoff.StatePending
	if raw := r.URL.Query().Get("state"); raw != "" {
		state = handoff.State(raw)
		if !state.Valid() {
			writeError(w, http.StatusBadRequest, "state must be pending, processed, or failed")
			return
		}
	}

	entries, err := h.Boxes.List(slug, state)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if entries == nil {
		entries = []mailbox.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// NextTasks handles GET /api/v1/tasks/next
func (h *Handlers) NextTasks(w http.ResponseWriter, r *http.Request) {
	limit := h.SelectLimit
	if limit < 1 {
		limit = 10
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > previewLimitCap {
		limit = previewLimitCap
	}

	tasks, err := h.Selector.Preview(r.Context(), limit)
	if err != nil {
		slog.Warn("task preview failed", "error", err)
		writeError(w, http.StatusBadGateway, "task registry unavailable")
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Dispatch handles POST /api/v1/dispatch
func (h *Handlers) Dispatch(w http.ResponseWriter, r *http.Request) {
	res, err := h.Orchestrator.DispatchOnce(r.Context())
	if err != nil {
		slog.Warn("manual dispatch failed", "error", err)
		writeError(w, http.StatusBadGateway, "task registry unavailable")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type markRequest struct {
	Outcome string `json:"outcome"`
}

type markResponse struct {
	Path  string `json:"path"`
	State string `json:"state"`
}

// MarkHandoff handles POST /api/v1/agents/{slug}/mailbox/{filename}/mark
func (h *Handlers) MarkHandoff(w http.ResponseWriter, r *http.Request) {
	slug := urlParam(r, "slug")
	if err := sanitizeName(slug); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filename := urlParam(r, "filename")
	if err := sanitizeName(filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, ok := readJSON[markRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	if !requireField(w, req.Outcome, "outcome") {
		return
	}
	if req.Outcome != "success" && req.Outcome != "failure" {
		writeError(w, http.StatusBadRequest, `outcome must be "success" or "failure"`)
		return
	}

	path, err := h.Marker.Mark(r.Context(), slug, filename, req.Outcome)
	if err != nil {
		writeDomainError(w, err, "handoff document not found in pending")
		return
	}

	state := handoff.StateProcessed
	if req.Outcome == "failure" {
		state = handoff.StateFailed
	}
	writeJSON(w, http.StatusOK, markResponse{Path: path, State: state.Dir()})
}
