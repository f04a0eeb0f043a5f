package savers

import (
	"context"
	"fmt"

	"github.com/rtmcrc/claude-task-master/pkg/taskstore"
)

type subtasksPayload struct {
	Subtasks []taskstore.Subtask `json:"subtasks"`
}

// SaveSubtasks appends an expand-task result to the parent task, numbering
// from the nextSubtaskId fixed at directive time. Pre-existing subtasks are
// never removed here; a force clear happened before delegation.
func SaveSubtasks(ctx context.Context, store *taskstore.Store, in *Input) error {
	taskID, ok := hintInt(in.Hints, "taskId")
	if !ok {
		return fmt.Errorf("directive carried no taskId hint")
	}
	nextSubtaskID, ok := hintInt(in.Hints, "nextSubtaskId")
	if !ok || nextSubtaskID <= 0 {
		nextSubtaskID = 1
	}

	var fresh []taskstore.Subtask
	wrapped := &subtasksPayload{}
	if err := decodePayload(in.Output, wrapped); err == nil && len(wrapped.Subtasks) > 0 {
		fresh = wrapped.Subtasks
	} else if err := decodePayload(in.Output, &fresh); err != nil {
		return err
	}
	if len(fresh) == 0 {
		return fmt.Errorf("agent returned no subtasks")
	}

	// Renumber sequentially from the hint: agent-chosen ids are untrusted.
	for i := range fresh {
		fresh[i].ID = nextSubtaskID + i
		if fresh[i].Status == "" {
			fresh[i].Status = taskstore.StatusPending
		}
		if fresh[i].Title == "" {
			return fmt.Errorf("subtask %d has no title", fresh[i].ID)
		}
	}

	return store.Mutate(in.Tag, func(data *taskstore.TagData) error {
		task, found := data.Task(taskID)
		if !found {
			return fmt.Errorf("task %d not found", taskID)
		}
		if task.Completed() {
			in.Logger.Warn("Skipping expansion of completed task", "task", taskID)
			return nil
		}
		task.Subtasks = append(task.Subtasks, fresh...)
		return nil
	})
}

// shortPromptLimit is the length under which the original user prompt also
// earns a dated marker on the subtask description.
const shortPromptLimit = 100

// SaveSubtaskDetail appends an update-subtask result to the subtask's
// details as a timestamped block. Completed subtasks are left untouched.
func SaveSubtaskDetail(ctx context.Context, store *taskstore.Store, in *Input) error {
	parentID, ok := hintInt(in.Hints, "parentId")
	if !ok {
		return fmt.Errorf("directive carried no parentId hint")
	}
	subtaskID, ok := hintInt(in.Hints, "subtaskId")
	if !ok {
		return fmt.Errorf("directive carried no subtaskId hint")
	}

	text, err := textPayload(in.Output)
	if err != nil {
		return err
	}
	prompt := hintString(in.Hints, "prompt")

	return store.Mutate(in.Tag, func(data *taskstore.TagData) error {
		task, found := data.Task(parentID)
		if !found {
			return fmt.Errorf("task %d not found", parentID)
		}
		subtask, found := task.Subtask(subtaskID)
		if !found {
			return fmt.Errorf("subtask %d.%d not found", parentID, subtaskID)
		}
		if subtask.Completed() {
			in.Logger.Warn("Skipping note on completed subtask", "task", parentID, "subtask", subtaskID)
			return nil
		}

		subtask.Details += taskstore.TimestampedBlock(text, in.Now)
		if prompt != "" && len(prompt) < shortPromptLimit {
			subtask.Description += fmt.Sprintf(" [Updated: %s]", in.Now.Format("2006-01-02"))
		}
		return nil
	})
}
