package savers

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtmcrc/claude-task-master/pkg/taskstore"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *taskstore.Store {
	t.Helper()
	store, err := taskstore.NewStore(t.TempDir(), "master")
	require.NoError(t, err)
	return store
}

func input(output any, hints map[string]any) *Input {
	if hints == nil {
		hints = map[string]any{}
	}
	return &Input{
		Output: output,
		Args:   map[string]any{},
		Hints:  hints,
		Tag:    "master",
		Now:    testNow,
		Logger: slog.Default(),
	}
}

func seedTask(t *testing.T, store *taskstore.Store, task taskstore.Task) {
	t.Helper()
	require.NoError(t, store.Mutate("master", func(data *taskstore.TagData) error {
		data.Tasks = append(data.Tasks, task)
		return nil
	}))
}

func TestSaveImportedTasks(t *testing.T) {
	store := newTestStore(t)

	payload := map[string]any{
		"tasks": []any{
			map[string]any{"id": 1, "title": "A", "description": "first"},
			map[string]any{"id": 2, "title": "B"},
			map[string]any{"id": 3, "title": "C"},
		},
		"metadata": map[string]any{"description": "from prd"},
	}
	require.NoError(t, SaveImportedTasks(context.Background(), store, input(payload, map[string]any{
		"numTasks":   3,
		"nextTaskId": 1,
	})))

	data, err := store.LoadTag("master")
	require.NoError(t, err)
	require.Len(t, data.Tasks, 3)
	assert.Equal(t, "A", data.Tasks[0].Title)
	assert.Equal(t, taskstore.StatusPending, data.Tasks[0].Status)
	assert.Equal(t, "from prd", data.Metadata.Description)

	// Derived files are regenerated alongside the store.
	for _, name := range []string{"task_001.txt", "task_002.txt", "task_003.txt"} {
		_, err := os.Stat(filepath.Join(store.ProjectRoot(), taskstore.TasksDir, name))
		assert.NoError(t, err, name)
	}
}

func TestSaveImportedTasks_JSONStringPayload(t *testing.T) {
	store := newTestStore(t)

	payload := "```json\n{\"tasks\":[{\"id\":1,\"title\":\"A\"}],\"metadata\":{}}\n```"
	require.NoError(t, SaveImportedTasks(context.Background(), store, input(payload, nil)))

	data, err := store.LoadTag("master")
	require.NoError(t, err)
	require.Len(t, data.Tasks, 1)
}

func TestSaveImportedTasks_AppendCollision(t *testing.T) {
	store := newTestStore(t)
	seedTask(t, store, taskstore.Task{ID: 1, Title: "existing", Status: taskstore.StatusPending})

	payload := map[string]any{"tasks": []any{map[string]any{"id": 1, "title": "dup"}}}
	err := SaveImportedTasks(context.Background(), store, input(payload, map[string]any{
		"append":     true,
		"nextTaskId": 2,
	}))
	require.Error(t, err)
}

func TestSaveSubtasks_NumbersFromHint(t *testing.T) {
	store := newTestStore(t)
	seedTask(t, store, taskstore.Task{
		ID: 7, Title: "parent", Status: taskstore.StatusPending,
		Subtasks: []taskstore.Subtask{
			{ID: 1, Title: "s1", Status: taskstore.StatusPending},
			{ID: 2, Title: "s2", Status: taskstore.StatusDone},
		},
	})

	payload := map[string]any{"subtasks": []any{
		map[string]any{"id": 1, "title": "new-a"},
		map[string]any{"id": 2, "title": "new-b"},
		map[string]any{"id": 3, "title": "new-c"},
	}}
	require.NoError(t, SaveSubtasks(context.Background(), store, input(payload, map[string]any{
		"taskId":        7,
		"nextSubtaskId": 3,
	})))

	data, err := store.LoadTag("master")
	require.NoError(t, err)
	task, ok := data.Task(7)
	require.True(t, ok)
	require.Len(t, task.Subtasks, 5)

	// Agent ids are renumbered from the hint; the pre-existing pair stays.
	assert.Equal(t, 1, task.Subtasks[0].ID)
	assert.Equal(t, 2, task.Subtasks[1].ID)
	assert.Equal(t, []int{3, 4, 5}, []int{task.Subtasks[2].ID, task.Subtasks[3].ID, task.Subtasks[4].ID})
	assert.Equal(t, "new-a", task.Subtasks[2].Title)
}

func TestSaveTaskUpdate_AppendMode(t *testing.T) {
	store := newTestStore(t)
	seedTask(t, store, taskstore.Task{
		ID: 5, Title: "five", Status: taskstore.StatusPending, Details: "base",
		Subtasks: []taskstore.Subtask{
			{ID: 1, Title: "one", Status: taskstore.StatusPending},
			{ID: 2, Title: "two", Status: taskstore.StatusDone, Details: "OLD"},
		},
	})

	in := input("extra context", map[string]any{"taskId": 5, "append": true})
	require.NoError(t, SaveTaskUpdate(context.Background(), store, in))

	data, err := store.LoadTag("master")
	require.NoError(t, err)
	task, _ := data.Task(5)
	assert.Contains(t, task.Details, "base")
	assert.Contains(t, task.Details, "extra context")
	assert.Contains(t, task.Details, "<info added on")

	// Untouched subtasks.
	assert.Equal(t, "OLD", task.Subtasks[1].Details)
	assert.Equal(t, "one", task.Subtasks[0].Title)
}

func TestSaveTaskUpdate_ProtectsCompletedSubtasks(t *testing.T) {
	store := newTestStore(t)
	seedTask(t, store, taskstore.Task{
		ID: 5, Title: "five", Status: taskstore.StatusPending,
		Subtasks: []taskstore.Subtask{
			{ID: 1, Title: "one", Status: taskstore.StatusPending},
			{ID: 2, Title: "two", Status: taskstore.StatusDone, Details: "OLD"},
		},
	})

	// The agent rewrote the done subtask and dropped the pending one.
	proposed := map[string]any{
		"id": 5, "title": "five updated", "status": "pending",
		"subtasks": []any{
			map[string]any{"id": 2, "title": "two", "status": "done", "details": "TAMPERED"},
		},
	}
	require.NoError(t, SaveTaskUpdate(context.Background(), store, input(proposed, map[string]any{"taskId": 5})))

	data, err := store.LoadTag("master")
	require.NoError(t, err)
	task, _ := data.Task(5)
	assert.Equal(t, "five updated", task.Title)

	done, ok := task.Subtask(2)
	require.True(t, ok)
	assert.Equal(t, "OLD", done.Details, "completed subtask must be restored verbatim")
}

func TestSaveTaskUpdate_CompletedParentIsNoOp(t *testing.T) {
	store := newTestStore(t)
	seedTask(t, store, taskstore.Task{ID: 9, Title: "done already", Status: taskstore.StatusDone})

	proposed := map[string]any{"id": 9, "title": "rewritten"}
	require.NoError(t, SaveTaskUpdate(context.Background(), store, input(proposed, map[string]any{"taskId": 9})))

	data, err := store.LoadTag("master")
	require.NoError(t, err)
	task, _ := data.Task(9)
	assert.Equal(t, "done already", task.Title)
}

func TestSaveSubtaskDetail(t *testing.T) {
	store := newTestStore(t)
	seedTask(t, store, taskstore.Task{
		ID: 5, Title: "five", Status: taskstore.StatusPending,
		Subtasks: []taskstore.Subtask{
			{ID: 1, Title: "one", Status: taskstore.StatusPending, Description: "desc"},
			{ID: 2, Title: "two", Status: taskstore.StatusDone, Details: "OLD"},
		},
	})

	hints := map[string]any{"parentId": 5, "subtaskId": 1, "prompt": "note"}
	require.NoError(t, SaveSubtaskDetail(context.Background(), store, input("progress made", hints)))

	data, err := store.LoadTag("master")
	require.NoError(t, err)
	task, _ := data.Task(5)
	sub, _ := task.Subtask(1)
	assert.Contains(t, sub.Details, "progress made")
	assert.Contains(t, sub.Description, "[Updated: 2025-06-15]")

	// Completed subtask stays untouched.
	hints["subtaskId"] = 2
	require.NoError(t, SaveSubtaskDetail(context.Background(), store, input("should not land", hints)))
	data, _ = store.LoadTag("master")
	task, _ = data.Task(5)
	done, _ := task.Subtask(2)
	assert.Equal(t, "OLD", done.Details)
}

func TestSaveBulkUpdate_UnknownIDsDoNotAbort(t *testing.T) {
	store := newTestStore(t)
	seedTask(t, store, taskstore.Task{ID: 1, Title: "one", Status: taskstore.StatusPending})
	seedTask(t, store, taskstore.Task{ID: 2, Title: "two", Status: taskstore.StatusDone})

	payload := []any{
		map[string]any{"id": 1, "title": "one updated", "status": "pending"},
		map[string]any{"id": 2, "title": "two tampered", "status": "pending"},
		map[string]any{"id": 99, "title": "ghost", "status": "pending"},
	}
	require.NoError(t, SaveBulkUpdate(context.Background(), store, input(payload, nil)))

	data, err := store.LoadTag("master")
	require.NoError(t, err)

	one, _ := data.Task(1)
	assert.Equal(t, "one updated", one.Title)

	two, _ := data.Task(2)
	assert.Equal(t, "two", two.Title, "completed task must not change")

	_, exists := data.Task(99)
	assert.False(t, exists, "unknown ids are reported, not created")
}

func TestSaveNewTask(t *testing.T) {
	store := newTestStore(t)
	seedTask(t, store, taskstore.Task{ID: 1, Title: "one", Status: taskstore.StatusPending})

	draft := map[string]any{
		"title":        "new feature",
		"description":  "does things",
		"details":      "how",
		"testStrategy": "unit tests",
		"dependencies": []any{1},
	}
	hints := map[string]any{
		"newTaskId":        2,
		"userDependencies": []any{float64(1)},
		"userPriority":     "high",
	}
	require.NoError(t, SaveNewTask(context.Background(), store, input(draft, hints)))

	data, err := store.LoadTag("master")
	require.NoError(t, err)
	task, ok := data.Task(2)
	require.True(t, ok)
	assert.Equal(t, "new feature", task.Title)
	assert.Equal(t, "high", task.Priority)
	assert.Equal(t, []int{1}, task.Dependencies)
	assert.Equal(t, taskstore.StatusPending, task.Status)
}

func TestSaveNewTask_IDCollision(t *testing.T) {
	store := newTestStore(t)
	seedTask(t, store, taskstore.Task{ID: 2, Title: "taken", Status: taskstore.StatusPending})

	err := SaveNewTask(context.Background(), store, input(
		map[string]any{"title": "late"},
		map[string]any{"newTaskId": 2},
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestSaveComplexityReport_MergeTargeted(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveReport(&taskstore.ComplexityReport{
		Analysis: []taskstore.ComplexityItem{
			{TaskID: 1, TaskTitle: "one", ComplexityScore: 4},
			{TaskID: 2, TaskTitle: "two", ComplexityScore: 8},
		},
	}))

	payload := []any{map[string]any{
		"taskId": 2, "taskTitle": "two", "complexityScore": 6, "recommendedSubtasks": 4,
	}}
	hints := map[string]any{"targeted": true, "threshold": 5, "useResearch": true}
	require.NoError(t, SaveComplexityReport(context.Background(), store, input(payload, hints)))

	report, err := store.LoadReport()
	require.NoError(t, err)
	require.Len(t, report.Analysis, 2)

	two, ok := report.Item(2)
	require.True(t, ok)
	assert.Equal(t, 6, two.ComplexityScore)

	one, ok := report.Item(1)
	require.True(t, ok)
	assert.Equal(t, 4, one.ComplexityScore, "untargeted entry survives the merge")

	assert.Equal(t, 5, report.Meta.Threshold)
	assert.True(t, report.Meta.UsedResearch)
	assert.Equal(t, testNow, report.Meta.GeneratedAt)
}

func TestSaveResearch_FileIsDeterministic(t *testing.T) {
	store := newTestStore(t)

	hints := map[string]any{"query": "How to use Go generics?", "saveToFile": true}
	require.NoError(t, SaveResearch(context.Background(), store, input("Generics arrived in Go 1.18.", hints)))

	path := filepath.Join(store.ProjectRoot(), taskstore.DocsDir, "research",
		"2025-06-15_how-to-use-go-generics.md")
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// Identical inputs reproduce the file byte for byte.
	require.NoError(t, SaveResearch(context.Background(), store, input("Generics arrived in Go 1.18.", hints)))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSaveResearch_AppendToSubtaskSkipsCompleted(t *testing.T) {
	store := newTestStore(t)
	seedTask(t, store, taskstore.Task{
		ID: 3, Title: "three", Status: taskstore.StatusPending,
		Subtasks: []taskstore.Subtask{{ID: 1, Title: "s", Status: taskstore.StatusDone, Details: "OLD"}},
	})

	hints := map[string]any{"query": "q", "saveTo": "3.1"}
	require.NoError(t, SaveResearch(context.Background(), store, input("findings", hints)))

	data, err := store.LoadTag("master")
	require.NoError(t, err)
	task, _ := data.Task(3)
	sub, _ := task.Subtask(1)
	assert.Equal(t, "OLD", sub.Details)
}
