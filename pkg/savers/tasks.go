package savers

import (
	"context"
	"fmt"

	"github.com/rtmcrc/claude-task-master/pkg/taskstore"
)

// importedTasks is the payload shape of parse-prd.
type importedTasks struct {
	Tasks    []taskstore.Task `json:"tasks"`
	Metadata map[string]any   `json:"metadata"`
}

// SaveImportedTasks persists the task collection generated from a PRD and
// regenerates the derived per-task files.
func SaveImportedTasks(ctx context.Context, store *taskstore.Store, in *Input) error {
	payload := &importedTasks{}
	if err := decodePayload(in.Output, payload); err != nil {
		return err
	}
	if len(payload.Tasks) == 0 {
		return fmt.Errorf("agent returned no tasks")
	}

	for i := range payload.Tasks {
		payload.Tasks[i].Normalize()
		if err := payload.Tasks[i].Validate(); err != nil {
			return err
		}
	}

	appendMode := hintBool(in.Hints, "append")
	nextTaskID, _ := hintInt(in.Hints, "nextTaskId")

	return store.Mutate(in.Tag, func(data *taskstore.TagData) error {
		if !appendMode {
			data.Tasks = payload.Tasks
		} else {
			for _, task := range payload.Tasks {
				if task.ID < nextTaskID {
					return fmt.Errorf("appended task id %d collides below %d", task.ID, nextTaskID)
				}
				if _, exists := data.Task(task.ID); exists {
					return fmt.Errorf("appended task id %d already exists", task.ID)
				}
				data.Tasks = append(data.Tasks, task)
			}
		}
		if desc, ok := payload.Metadata["description"].(string); ok {
			data.Metadata.Description = desc
		}
		return nil
	})
}

// SaveTaskUpdate applies an update-task result: append mode attaches the
// agent text as a timestamped block, replace mode merges a full task object
// under the completed-item guard.
func SaveTaskUpdate(ctx context.Context, store *taskstore.Store, in *Input) error {
	taskID, ok := hintInt(in.Hints, "taskId")
	if !ok {
		return fmt.Errorf("directive carried no taskId hint")
	}

	if hintBool(in.Hints, "append") {
		text, err := textPayload(in.Output)
		if err != nil {
			return err
		}
		return store.Mutate(in.Tag, func(data *taskstore.TagData) error {
			task, found := data.Task(taskID)
			if !found {
				return fmt.Errorf("task %d not found", taskID)
			}
			if task.Completed() {
				in.Logger.Warn("Skipping append to completed task", "task", taskID)
				return nil
			}
			task.Details += taskstore.TimestampedBlock(text, in.Now)
			return nil
		})
	}

	proposed := &taskstore.Task{}
	if err := decodePayload(in.Output, proposed); err != nil {
		return err
	}
	proposed.Normalize()
	// The id is authoritative from the original call, whatever the agent
	// echoed back.
	proposed.ID = taskID
	if err := proposed.Validate(); err != nil {
		return err
	}

	return store.Mutate(in.Tag, func(data *taskstore.TagData) error {
		existing, found := data.Task(taskID)
		if !found {
			return fmt.Errorf("task %d not found", taskID)
		}
		if existing.Completed() {
			in.Logger.Warn("Skipping update of completed task", "task", taskID)
			return nil
		}
		taskstore.ProtectCompletedSubtasks(existing, proposed, in.Logger)
		*existing = *proposed
		return nil
	})
}

// SaveBulkUpdate applies an update-tasks result: each returned task merges
// under the single-task invariants; unknown ids are reported but do not
// abort the batch.
func SaveBulkUpdate(ctx context.Context, store *taskstore.Store, in *Input) error {
	var proposed []taskstore.Task
	wrapped := &importedTasks{}
	if err := decodePayload(in.Output, &proposed); err != nil {
		if err2 := decodePayload(in.Output, wrapped); err2 != nil || len(wrapped.Tasks) == 0 {
			return err
		}
		proposed = wrapped.Tasks
	}
	if len(proposed) == 0 {
		return fmt.Errorf("agent returned no tasks")
	}

	return store.Mutate(in.Tag, func(data *taskstore.TagData) error {
		for i := range proposed {
			update := &proposed[i]
			update.Normalize()
			if err := update.Validate(); err != nil {
				in.Logger.Warn("Dropping malformed task from bulk update", "task", update.ID, "error", err)
				continue
			}
			existing, found := data.Task(update.ID)
			if !found {
				in.Logger.Warn("Bulk update references unknown task", "task", update.ID)
				continue
			}
			if existing.Completed() {
				in.Logger.Warn("Skipping bulk update of completed task", "task", update.ID)
				continue
			}
			taskstore.ProtectCompletedSubtasks(existing, update, in.Logger)
			*existing = *update
		}
		return nil
	})
}

// SaveNewTask composes an add-task result with the id, dependencies and
// priority fixed at directive time, refusing on id collision.
func SaveNewTask(ctx context.Context, store *taskstore.Store, in *Input) error {
	newTaskID, ok := hintInt(in.Hints, "newTaskId")
	if !ok || newTaskID <= 0 {
		return fmt.Errorf("directive carried no newTaskId hint")
	}

	draft := &taskstore.Task{}
	if err := decodePayload(in.Output, draft); err != nil {
		return err
	}

	task := taskstore.Task{
		ID:           newTaskID,
		Title:        draft.Title,
		Description:  draft.Description,
		Details:      draft.Details,
		TestStrategy: draft.TestStrategy,
		Dependencies: draft.Dependencies,
		Priority:     hintString(in.Hints, "userPriority"),
		Status:       taskstore.StatusPending,
	}
	if userDeps := hintIntSlice(in.Hints, "userDependencies"); len(userDeps) > 0 {
		task.Dependencies = userDeps
	}
	if task.Priority == "" {
		task.Priority = "medium"
	}
	task.Normalize()
	if err := task.Validate(); err != nil {
		return err
	}

	return store.Mutate(in.Tag, func(data *taskstore.TagData) error {
		if _, exists := data.Task(task.ID); exists {
			return fmt.Errorf("task id %d already exists", task.ID)
		}
		data.Tasks = append(data.Tasks, task)
		return nil
	})
}
