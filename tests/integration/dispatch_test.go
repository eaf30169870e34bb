//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path"
	"testing"
	"time"
)

type cycleBody struct {
	Outcome    string `json:"outcome"`
	TaskID     string `json:"task_id"`
	TaskTitle  string `json:"task_title"`
	AgentSlug  string `json:"agent_slug"`
	Path       string `json:"path"`
	Candidates int    `json:"candidates"`
	Skipped    int    `json:"skipped"`
}

func dispatchOnce(t *testing.T) cycleBody {
	t.Helper()
	resp, err := http.Post(testServer.URL+"/api/v1/dispatch", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/v1/dispatch: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body cycleBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func mailboxEntries(t *testing.T, slug, state string) []struct {
	Name  string `json:"name"`
	State string `json:"state"`
} {
	t.Helper()
	resp, err := http.Get(testServer.URL + "/api/v1/agents/" + slug + "/mailbox?state=" + state)
	if err != nil {
		t.Fatalf("GET mailbox: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var entries []struct {
		Name  string `json:"name"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	return entries
}

func TestDispatchFlow(t *testing.T) {
	notion.reset(pageFixture{
		ID:       "page-alpha",
		Title:    "Transcode interview footage",
		Status:   "To Do",
		Priority: "High",
		Edited:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	})

	// First cycle writes the handoff and patches the status.
	first := dispatchOnce(t)
	if first.Outcome != "dispatched" {
		t.Fatalf("expected dispatched, got %q", first.Outcome)
	}
	if first.AgentSlug != "media-processing-agent" {
		t.Fatalf("expected media-processing-agent, got %q", first.AgentSlug)
	}
	if first.Path == "" {
		t.Fatal("expected a handoff path")
	}
	if got := notion.recordedStatus("page-alpha"); got != "In Progress" {
		t.Fatalf("expected status patch to In Progress, got %q", got)
	}

	pending := mailboxEntries(t, "media-processing-agent", "pending")
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending handoff, got %d", len(pending))
	}
	if pending[0].Name != path.Base(first.Path) {
		t.Fatalf("mailbox entry %q does not match dispatched path %q", pending[0].Name, first.Path)
	}

	// The fake never moves the page out of To Do, so the next cycle selects
	// the same task again and must detect the existing document.
	second := dispatchOnce(t)
	if second.Outcome != "duplicate" {
		t.Fatalf("expected duplicate, got %q", second.Outcome)
	}
	if second.Path != first.Path {
		t.Fatalf("duplicate path %q does not match original %q", second.Path, first.Path)
	}

	// Completing the handoff moves it to processed.
	markURL := testServer.URL + "/api/v1/agents/media-processing-agent/mailbox/" + path.Base(first.Path) + "/mark"
	resp, err := http.Post(markURL, "application/json", bytes.NewReader([]byte(`{"outcome":"success"}`)))
	if err != nil {
		t.Fatalf("POST mark: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var marked struct {
		Path  string `json:"path"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&marked); err != nil {
		t.Fatalf("decode mark response: %v", err)
	}
	if marked.State != "processed" {
		t.Fatalf("expected processed, got %q", marked.State)
	}

	// Processed documents still count: a task is never dispatched twice.
	third := dispatchOnce(t)
	if third.Outcome != "duplicate" {
		t.Fatalf("expected duplicate after completion, got %q", third.Outcome)
	}
	if third.Path != marked.Path {
		t.Fatalf("duplicate path %q does not match processed path %q", third.Path, marked.Path)
	}
}

func TestDispatchIdle(t *testing.T) {
	notion.reset()

	res := dispatchOnce(t)
	if res.Outcome != "idle" {
		t.Fatalf("expected idle, got %q", res.Outcome)
	}
	if res.Candidates != 0 {
		t.Fatalf("expected 0 candidates, got %d", res.Candidates)
	}
}

func TestSynonymStatusFallback(t *testing.T) {
	// "to-do" matches none of the configured statuses; the selector has to
	// fall back to alternate spellings to find it.
	notion.reset(pageFixture{
		ID:       "page-gamma",
		Title:    "Summarize quarterly findings",
		Status:   "to-do",
		Priority: "Medium",
		Edited:   time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC),
	})

	res := dispatchOnce(t)
	if res.Outcome != "dispatched" {
		t.Fatalf("expected dispatched, got %q", res.Outcome)
	}
	if res.AgentSlug != "research-agent" {
		t.Fatalf("expected research-agent, got %q", res.AgentSlug)
	}
	if got := notion.recordedStatus("page-gamma"); got != "In Progress" {
		t.Fatalf("expected status patch to In Progress, got %q", got)
	}
}

func TestNextTasksOrdering(t *testing.T) {
	notion.reset(
		pageFixture{
			ID:       "page-low",
			Title:    "Archive old research notes",
			Status:   "To Do",
			Priority: "Low",
			Edited:   time.Date(2026, 8, 22, 8, 0, 0, 0, time.UTC),
		},
		pageFixture{
			ID:       "page-critical",
			Title:    "Transcode launch video",
			Status:   "Ready",
			Priority: "Critical",
			Edited:   time.Date(2026, 8, 19, 8, 0, 0, 0, time.UTC),
		},
	)

	resp, err := http.Get(testServer.URL + "/api/v1/tasks/next?limit=2")
	if err != nil {
		t.Fatalf("GET /api/v1/tasks/next: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var tasks []struct {
		ID       string `json:"id"`
		Priority string `json:"priority"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "page-critical" {
		t.Fatalf("expected page-critical first, got %q", tasks[0].ID)
	}
}
