package savers

import (
	"context"
	"fmt"
	"strings"

	"github.com/rtmcrc/claude-task-master/pkg/taskstore"
)

// SaveResearch handles a research result: optionally writes it as a
// Markdown document, optionally appends it to a task or subtask. Both
// destinations may apply on the same interaction.
func SaveResearch(ctx context.Context, store *taskstore.Store, in *Input) error {
	text, err := textPayload(in.Output)
	if err != nil {
		return err
	}
	query := hintString(in.Hints, "query")
	if query == "" {
		query = "research"
	}

	if hintBool(in.Hints, "saveToFile") {
		path, err := store.SaveResearchDoc(query, text, in.Now)
		if err != nil {
			return err
		}
		in.Logger.Info("Research saved to file", "path", path)
	}

	saveTo := hintString(in.Hints, "saveTo")
	if saveTo == "" {
		return nil
	}

	block := taskstore.TimestampedBlock(fmt.Sprintf("Research: %s\n\n%s", query, text), in.Now)

	if parent, sub, ok := splitDotted(saveTo); ok {
		return store.Mutate(in.Tag, func(data *taskstore.TagData) error {
			task, found := data.Task(parent)
			if !found {
				return fmt.Errorf("task %d not found", parent)
			}
			subtask, found := task.Subtask(sub)
			if !found {
				return fmt.Errorf("subtask %s not found", saveTo)
			}
			if task.Completed() || subtask.Completed() {
				in.Logger.Warn("Skipping research append to completed item", "target", saveTo)
				return nil
			}
			subtask.Details += block
			return nil
		})
	}

	taskID, err := parsePositiveInt(saveTo)
	if err != nil {
		return fmt.Errorf("invalid saveTo target %q", saveTo)
	}
	return store.Mutate(in.Tag, func(data *taskstore.TagData) error {
		task, found := data.Task(taskID)
		if !found {
			return fmt.Errorf("task %d not found", taskID)
		}
		if task.Completed() {
			in.Logger.Warn("Skipping research append to completed task", "task", taskID)
			return nil
		}
		task.Details += block
		return nil
	})
}

func splitDotted(id string) (int, int, bool) {
	parts := strings.Split(id, ".")
	if len(parts) != 2 {
		return 0, 0, false
	}
	parent, err1 := parsePositiveInt(parts[0])
	sub, err2 := parsePositiveInt(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return parent, sub, true
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}
