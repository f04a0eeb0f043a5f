package taskstore

import (
	"log/slog"
	"testing"
)

func TestProtectCompletedSubtasks_RestoresModified(t *testing.T) {
	existing := &Task{
		ID: 5,
		Subtasks: []Subtask{
			{ID: 1, Title: "one", Status: StatusPending},
			{ID: 2, Title: "two", Status: StatusDone, Details: "OLD"},
		},
	}
	proposed := &Task{
		ID: 5,
		Subtasks: []Subtask{
			{ID: 1, Title: "one changed", Status: StatusPending},
			{ID: 2, Title: "two", Status: StatusDone, Details: "TAMPERED"},
		},
	}

	final := ProtectCompletedSubtasks(existing, proposed, slog.Default())

	if final.Subtasks[0].Title != "one changed" {
		t.Errorf("pending subtask should keep the proposal, got %q", final.Subtasks[0].Title)
	}
	if final.Subtasks[1].Details != "OLD" {
		t.Errorf("completed subtask details = %q, want OLD", final.Subtasks[1].Details)
	}
}

func TestProtectCompletedSubtasks_RestoresRemoved(t *testing.T) {
	existing := &Task{
		ID: 5,
		Subtasks: []Subtask{
			{ID: 1, Title: "one", Status: StatusCompleted},
			{ID: 2, Title: "two", Status: StatusPending},
		},
	}
	proposed := &Task{
		ID:       5,
		Subtasks: []Subtask{{ID: 2, Title: "two", Status: StatusPending}},
	}

	final := ProtectCompletedSubtasks(existing, proposed, slog.Default())

	if len(final.Subtasks) != 2 {
		t.Fatalf("len(subtasks) = %d, want 2", len(final.Subtasks))
	}
	// Restored in id order.
	if final.Subtasks[0].ID != 1 || final.Subtasks[0].Title != "one" {
		t.Errorf("removed completed subtask not restored in place: %+v", final.Subtasks[0])
	}
}

func TestProtectCompletedSubtasks_NilSafe(t *testing.T) {
	if got := ProtectCompletedSubtasks(nil, nil, slog.Default()); got != nil {
		t.Errorf("nil inputs should pass through, got %+v", got)
	}
	proposed := &Task{ID: 1}
	if got := ProtectCompletedSubtasks(nil, proposed, slog.Default()); got != proposed {
		t.Error("nil existing should return the proposal")
	}
}

func TestIsCompletedStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusDone, true},
		{StatusCompleted, true},
		{StatusPending, false},
		{StatusInProgress, false},
		{StatusCancelled, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsCompletedStatus(tt.status); got != tt.want {
			t.Errorf("IsCompletedStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
