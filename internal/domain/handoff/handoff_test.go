package handoff

import (
	"strings"
	"testing"
	"time"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/agent"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/task"
)

func sampleTask() task.Task {
	return task.Task{
		ID:       "3e2f9c11-0000-4abc-9def-55aa11bb22cc",
		Title:    "Implement media dedup pass",
		URL:      "https://registry.example.com/t/3e2f9c11",
		Status:   "To Do",
		Priority: task.PriorityHigh,
	}
}

func sampleAgent() agent.Agent {
	return agent.Agent{Name: "Media Worker", ID: "MW1", Mode: agent.ModePrimary}
}

func TestNew_CapturesTaskSnapshot(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 30, 15, 987654321, time.UTC)
	doc := New(sampleTask(), sampleAgent(), "start with the inbox folder", true, now)

	if doc.TaskID != "3e2f9c11-0000-4abc-9def-55aa11bb22cc" {
		t.Fatalf("TaskID = %q", doc.TaskID)
	}
	if doc.AgentName != "Media Worker" || doc.AgentID != "MW1" {
		t.Fatalf("agent fields = %q/%q", doc.AgentName, doc.AgentID)
	}
	if doc.Mode != agent.ModePrimary {
		t.Fatalf("Mode = %q", doc.Mode)
	}
	if !doc.Archive {
		t.Fatal("Archive marker lost")
	}
	if doc.DispatchID == "" {
		t.Fatal("DispatchID not assigned")
	}
	if doc.CreatedAt != now.Truncate(time.Second) {
		t.Fatalf("CreatedAt = %v, want second precision UTC", doc.CreatedAt)
	}
}

func TestFilename_Layout(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 30, 15, 0, time.UTC)
	doc := New(sampleTask(), sampleAgent(), "", false, now)

	got := doc.Filename()
	want := "20260402T093015Z__HANDOFF__implement-media-dedup-pass__11bb22cc.json"
	if got != want {
		t.Fatalf("Filename = %q, want %q", got, want)
	}
	if !strings.HasSuffix(got, FragmentSuffix(task.Fragment(doc.TaskID))) {
		t.Fatalf("Filename %q does not end with fragment suffix", got)
	}
}

func TestFilename_LexicographicIsChronological(t *testing.T) {
	earlier := New(sampleTask(), sampleAgent(), "", false, time.Date(2026, 1, 9, 23, 59, 59, 0, time.UTC))
	later := New(sampleTask(), sampleAgent(), "", false, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))

	if !(earlier.Filename() < later.Filename()) {
		t.Fatalf("filenames out of order: %q !< %q", earlier.Filename(), later.Filename())
	}
}

func TestFilename_TitleBounded(t *testing.T) {
	tk := sampleTask()
	tk.Title = strings.Repeat("very long title segment ", 10)
	doc := New(tk, sampleAgent(), "", false, time.Now())

	info, err := ParseName(doc.Filename())
	if err != nil {
		t.Fatalf("ParseName: %v", err)
	}
	if len(info.Title) > 50 {
		t.Fatalf("title segment %d bytes, want <= 50", len(info.Title))
	}
	if strings.HasSuffix(info.Title, "-") || strings.HasPrefix(info.Title, "-") {
		t.Fatalf("title segment has edge hyphen: %q", info.Title)
	}
}

func TestFilename_EmptyTitleFallsBack(t *testing.T) {
	tk := sampleTask()
	tk.Title = "!!! ???"
	doc := New(tk, sampleAgent(), "", false, time.Now())

	info, err := ParseName(doc.Filename())
	if err != nil {
		t.Fatalf("ParseName: %v", err)
	}
	if info.Title != "task" {
		t.Fatalf("title fallback = %q, want %q", info.Title, "task")
	}
}

func TestParseName_RoundTrip(t *testing.T) {
	now := time.Date(2026, 7, 14, 18, 4, 5, 0, time.UTC)
	doc := New(sampleTask(), sampleAgent(), "", false, now)

	info, err := ParseName(doc.Filename())
	if err != nil {
		t.Fatalf("ParseName: %v", err)
	}
	if !info.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v, want %v", info.CreatedAt, now)
	}
	if info.Fragment != task.Fragment(doc.TaskID) {
		t.Fatalf("Fragment = %q, want %q", info.Fragment, task.Fragment(doc.TaskID))
	}
}

func TestParseName_RejectsForeignFiles(t *testing.T) {
	bad := []string{
		"notes.txt",
		"20260402T093015Z__implement__abc.json",
		"__HANDOFF__title__frag.json",
		"20260402T093015Z__HANDOFF__titleonly.json",
	}
	for _, name := range bad {
		if _, err := ParseName(name); err == nil {
			t.Fatalf("ParseName(%q) succeeded, want error", name)
		}
	}
}

func TestStateValid(t *testing.T) {
	for _, s := range States() {
		if !s.Valid() {
			t.Fatalf("state %q should be valid", s)
		}
	}
	if State("archived").Valid() {
		t.Fatal("unexpected state accepted")
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	doc := New(sampleTask(), sampleAgent(), "", false, time.Now())
	if err := doc.Validate(); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}

	missing := doc
	missing.TaskID = ""
	if err := missing.Validate(); err == nil {
		t.Fatal("expected error for missing task_id")
	}

	missing = doc
	missing.AgentName = ""
	if err := missing.Validate(); err == nil {
		t.Fatal("expected error for missing agent_name")
	}
}
