package task

import (
	"testing"
	"time"
)

func TestRank_KnownLabels(t *testing.T) {
	cases := []struct {
		p    Priority
		want int
	}{
		{PriorityCritical, 0},
		{PriorityHigh, 1},
		{PriorityMedium, 2},
		{PriorityLow, 3},
		{Priority("critical"), 0},
		{Priority(" HIGH "), 1},
	}
	for _, c := range cases {
		if got := c.p.Rank(); got != c.want {
			t.Fatalf("Rank(%q) = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestRank_UnknownLabelsSortLast(t *testing.T) {
	for _, p := range []Priority{"", "Urgent", "P0", "???"} {
		if got := p.Rank(); got != rankUnknown {
			t.Fatalf("Rank(%q) = %d, want %d", p, got, rankUnknown)
		}
	}
}

func TestSortActionable_PriorityThenRecency(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tasks := []Task{
		{ID: "low", Priority: PriorityLow, LastEditedAt: base},
		{ID: "critical", Priority: PriorityCritical, LastEditedAt: base},
		{ID: "medium", Priority: PriorityMedium, LastEditedAt: base},
		{ID: "high", Priority: PriorityHigh, LastEditedAt: base},
		{ID: "unset", LastEditedAt: base},
	}
	SortActionable(tasks)

	want := []string{"critical", "high", "medium", "low", "unset"}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("position %d: got %q, want %q", i, tasks[i].ID, id)
		}
	}
}

func TestSortActionable_RecencyBreaksTies(t *testing.T) {
	older := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	newer := older.Add(2 * time.Hour)
	tasks := []Task{
		{ID: "older", Priority: PriorityHigh, LastEditedAt: older},
		{ID: "newer", Priority: PriorityHigh, LastEditedAt: newer},
	}
	SortActionable(tasks)

	if tasks[0].ID != "newer" {
		t.Fatalf("expected most recently edited first, got %q", tasks[0].ID)
	}
}

func TestStatusClosed_SpellingVariants(t *testing.T) {
	closed := []string{"Done", "done", "COMPLETED", "Wont-Do", "wont_do", "Cancelled", "canceled", "Archived"}
	for _, s := range closed {
		if !StatusClosed(s) {
			t.Fatalf("StatusClosed(%q) = false, want true", s)
		}
	}
	open := []string{"", "To Do", "In Progress", "In-progress", "Blocked", "Review"}
	for _, s := range open {
		if StatusClosed(s) {
			t.Fatalf("StatusClosed(%q) = true, want false", s)
		}
	}
}

func TestAlternateSpellings_SwapsHyphensAndSpaces(t *testing.T) {
	alts := AlternateSpellings("In Progress")

	found := false
	for _, a := range alts {
		if a == "In-Progress" {
			found = true
		}
		if a == "In Progress" {
			t.Fatalf("alternate spellings must not include the input, got %v", alts)
		}
	}
	if !found {
		t.Fatalf("expected hyphenated variant in %v", alts)
	}
}

func TestAlternateSpellings_Deduplicates(t *testing.T) {
	alts := AlternateSpellings("todo")
	seen := make(map[string]bool, len(alts))
	for _, a := range alts {
		if seen[a] {
			t.Fatalf("duplicate spelling %q in %v", a, alts)
		}
		seen[a] = true
	}
}

func TestAlternateSpellings_Empty(t *testing.T) {
	if alts := AlternateSpellings("  "); alts != nil {
		t.Fatalf("expected nil for blank status, got %v", alts)
	}
}

func TestFragment_LongID(t *testing.T) {
	got := Fragment("2f6b8a10-77c4-4a0e-9d3a-5b1c9e8f1234")
	if got != "9e8f1234" {
		t.Fatalf("Fragment = %q, want %q", got, "9e8f1234")
	}
}

func TestFragment_ShortIDUsedWhole(t *testing.T) {
	if got := Fragment("AB-42"); got != "ab42" {
		t.Fatalf("Fragment = %q, want %q", got, "ab42")
	}
}

func TestFragment_Deterministic(t *testing.T) {
	id := "9f1c2e77-aaaa-bbbb-cccc-0123456789ab"
	first := Fragment(id)
	for i := 0; i < 5; i++ {
		if got := Fragment(id); got != first {
			t.Fatalf("Fragment not stable: %q then %q", first, got)
		}
	}
}
