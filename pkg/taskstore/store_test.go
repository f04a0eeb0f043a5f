package taskstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), "master")
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestNewStore_Validation(t *testing.T) {
	if _, err := NewStore("", "master"); err == nil {
		t.Error("empty project root should fail")
	}
	if _, err := NewStore("relative/path", "master"); err == nil {
		t.Error("relative project root should fail")
	}
}

func TestStore_MutateCreatesTag(t *testing.T) {
	store := testStore(t)

	err := store.Mutate("feature", func(data *TagData) error {
		data.Tasks = append(data.Tasks, Task{ID: 1, Title: "A", Status: StatusPending})
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	// Canonical on-disk shape: tag name -> {tasks, metadata}.
	raw, err := os.ReadFile(store.TasksPath())
	if err != nil {
		t.Fatal(err)
	}
	tagged := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &tagged); err != nil {
		t.Fatalf("tasks.json is not a tag mapping: %v", err)
	}
	if _, ok := tagged["feature"]; !ok {
		t.Error("feature tag missing from tasks.json")
	}

	data, err := store.LoadTag("feature")
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Tasks) != 1 || data.Tasks[0].Title != "A" {
		t.Errorf("unexpected tasks: %+v", data.Tasks)
	}
	if data.Metadata.Updated.IsZero() {
		t.Error("metadata.updated should be stamped")
	}
}

func TestStore_MutateRollsBackOnError(t *testing.T) {
	store := testStore(t)

	if err := store.Mutate("master", func(data *TagData) error {
		data.Tasks = append(data.Tasks, Task{ID: 1, Title: "keep", Status: StatusPending})
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	wantErr := os.ErrInvalid
	if err := store.Mutate("master", func(data *TagData) error {
		data.Tasks = nil
		return wantErr
	}); err == nil {
		t.Fatal("expected the mutation error")
	}

	data, err := store.LoadTag("master")
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Tasks) != 1 {
		t.Errorf("failed mutation must not persist, got %d tasks", len(data.Tasks))
	}
}

func TestStore_DerivedFileNames(t *testing.T) {
	tests := []struct {
		id   int
		tag  string
		want string
	}{
		{1, "master", "task_001.txt"},
		{1, "", "task_001.txt"},
		{12, "feature", "task_012_feature.txt"},
		{123, "v2", "task_123_v2.txt"},
	}
	for _, tt := range tests {
		if got := TaskFileName(tt.id, tt.tag); got != tt.want {
			t.Errorf("TaskFileName(%d, %q) = %q, want %q", tt.id, tt.tag, got, tt.want)
		}
	}
}

func TestStore_RegenerateRemovesStale(t *testing.T) {
	store := testStore(t)

	err := store.Mutate("master", func(data *TagData) error {
		data.Tasks = []Task{{ID: 1, Title: "A", Status: StatusPending}, {ID: 2, Title: "B", Status: StatusPending}}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = store.Mutate("master", func(data *TagData) error {
		data.Tasks = data.Tasks[:1]
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(store.ProjectRoot(), TasksDir)
	if _, err := os.Stat(filepath.Join(dir, "task_001.txt")); err != nil {
		t.Errorf("task_001.txt should exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "task_002.txt")); !os.IsNotExist(err) {
		t.Error("task_002.txt should have been removed")
	}
}

func TestStore_TagIsolationOfDerivedFiles(t *testing.T) {
	store := testStore(t)

	for _, tag := range []string{"master", "feature"} {
		err := store.Mutate(tag, func(data *TagData) error {
			data.Tasks = []Task{{ID: 1, Title: tag, Status: StatusPending}}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	dir := filepath.Join(store.ProjectRoot(), TasksDir)
	for _, name := range []string{"task_001.txt", "task_001_feature.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s should exist: %v", name, err)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"How to use Go generics?", "how-to-use-go-generics"},
		{"  spaces  everywhere  ", "spaces-everywhere"},
		{"ALL CAPS!", "all-caps"},
		{"", "research"},
		{"???", "research"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResearchFileName(t *testing.T) {
	date := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	got := ResearchFileName("How to use Go generics?", date)
	want := "2025-06-15_how-to-use-go-generics.md"
	if got != want {
		t.Errorf("ResearchFileName() = %q, want %q", got, want)
	}
	// Time of day never leaks into the name.
	if again := ResearchFileName("How to use Go generics?", date.Add(5*time.Hour)); again != want {
		t.Errorf("file name should depend on the date only, got %q", again)
	}
}

func TestMergeReport(t *testing.T) {
	existing := &ComplexityReport{Analysis: []ComplexityItem{
		{TaskID: 1, ComplexityScore: 3},
		{TaskID: 2, ComplexityScore: 7},
	}}
	merged := MergeReport(existing, []ComplexityItem{
		{TaskID: 2, ComplexityScore: 5},
		{TaskID: 3, ComplexityScore: 9},
	})

	if len(merged.Analysis) != 3 {
		t.Fatalf("len = %d, want 3", len(merged.Analysis))
	}
	if item, _ := merged.Item(2); item.ComplexityScore != 5 {
		t.Errorf("task 2 score = %d, want 5", item.ComplexityScore)
	}
	if _, ok := merged.Item(3); !ok {
		t.Error("task 3 should be appended")
	}

	if fromNil := MergeReport(nil, []ComplexityItem{{TaskID: 1}}); len(fromNil.Analysis) != 1 {
		t.Error("merging into nil should create a report")
	}
}

func TestTimestampedBlock(t *testing.T) {
	at := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	block := TimestampedBlock("  note  ", at)
	want := "\n<info added on 2025-06-15T12:00:00Z>\nnote\n</info added on 2025-06-15T12:00:00Z>"
	if block != want {
		t.Errorf("TimestampedBlock() = %q, want %q", block, want)
	}
}

func TestTask_NextSubtaskID(t *testing.T) {
	task := &Task{}
	if got := task.NextSubtaskID(); got != 1 {
		t.Errorf("empty task NextSubtaskID() = %d, want 1", got)
	}
	task.Subtasks = []Subtask{{ID: 1}, {ID: 4}}
	if got := task.NextSubtaskID(); got != 5 {
		t.Errorf("NextSubtaskID() = %d, want 5", got)
	}
}
