package taskstore

import (
	"log/slog"
	"reflect"
)

// ProtectCompletedSubtasks reconciles an agent-proposed replacement task
// against the existing one: any pre-existing subtask whose status is done or
// completed is restored verbatim if the proposal modified or removed it.
//
// This is the single completed-item guard shared by every saver that merges
// whole task objects. The proposal is mutated in place and returned.
func ProtectCompletedSubtasks(existing, proposed *Task, logger *slog.Logger) *Task {
	if existing == nil || proposed == nil {
		return proposed
	}

	for _, old := range existing.Subtasks {
		if !old.Completed() {
			continue
		}
		restored := false
		for i := range proposed.Subtasks {
			if proposed.Subtasks[i].ID != old.ID {
				continue
			}
			if !reflect.DeepEqual(proposed.Subtasks[i], old) {
				logger.Warn("Restoring completed subtask modified by agent",
					"task", existing.ID, "subtask", old.ID)
				proposed.Subtasks[i] = old
			}
			restored = true
			break
		}
		if !restored {
			logger.Warn("Restoring completed subtask removed by agent",
				"task", existing.ID, "subtask", old.ID)
			proposed.Subtasks = insertSubtaskByID(proposed.Subtasks, old)
		}
	}
	return proposed
}

func insertSubtaskByID(subtasks []Subtask, s Subtask) []Subtask {
	at := len(subtasks)
	for i := range subtasks {
		if subtasks[i].ID > s.ID {
			at = i
			break
		}
	}
	subtasks = append(subtasks, Subtask{})
	copy(subtasks[at+1:], subtasks[at:])
	subtasks[at] = s
	return subtasks
}
