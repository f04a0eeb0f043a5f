package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rtmcrc/claude-task-master/pkg/llms"
	"github.com/rtmcrc/claude-task-master/pkg/prompts"
	"github.com/rtmcrc/claude-task-master/pkg/taskstore"
	"github.com/rtmcrc/claude-task-master/pkg/tool"
)

// CommandExpandTask is the originalCommand label of the expand_task tool.
const CommandExpandTask = "expand-task"

const defaultSubtaskCount = 3

type subtasksPayload struct {
	Subtasks []taskstore.Subtask `json:"subtasks"`
}

type expandTaskArgs struct {
	ID          int    `json:"id"`
	Num         int    `json:"num"`
	Prompt      string `json:"prompt"`
	Research    bool   `json:"research"`
	Force       bool   `json:"force"`
	Tag         string `json:"tag"`
	ProjectRoot string `json:"projectRoot"`
}

// ExpandTaskTool breaks one task into subtasks.
type ExpandTaskTool struct {
	deps *Deps
}

func NewExpandTaskTool(deps *Deps) *ExpandTaskTool {
	return &ExpandTaskTool{deps: deps}
}

func (t *ExpandTaskTool) Name() string { return ToolExpandTask }

func (t *ExpandTaskTool) Description() string {
	return "Expand a task into subtasks, appending to any that already exist."
}

func (t *ExpandTaskTool) Schema() map[string]any {
	return tool.ReflectSchema(&expandTaskArgs{})
}

func (t *ExpandTaskTool) Execute(ctx context.Context, call *tool.Call) (*tool.Result, error) {
	args := &expandTaskArgs{}
	if err := decodeArgs(call.Args, args); err != nil {
		return nil, err
	}
	if args.ID <= 0 {
		return nil, fmt.Errorf("id is required")
	}

	store, err := t.deps.storeFor(call)
	if err != nil {
		return nil, err
	}
	tag := store.ResolveTag(args.Tag)

	// Force clears existing subtasks before delegation, so the saver only
	// ever appends.
	if args.Force {
		err := store.Mutate(tag, func(data *taskstore.TagData) error {
			task, ok := data.Task(args.ID)
			if !ok {
				return fmt.Errorf("task %d not found in tag %q", args.ID, tag)
			}
			task.Subtasks = nil
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	data, err := store.LoadTag(tag)
	if err != nil {
		return nil, err
	}
	task, ok := data.Task(args.ID)
	if !ok {
		return nil, fmt.Errorf("task %d not found in tag %q", args.ID, tag)
	}

	numSubtasks := args.Num
	extraContext := args.Prompt
	if numSubtasks <= 0 {
		numSubtasks = defaultSubtaskCount
		if report, err := store.LoadReport(); err == nil && report != nil {
			if item, ok := report.Item(args.ID); ok && item.RecommendedSubtasks > 0 {
				numSubtasks = item.RecommendedSubtasks
				if extraContext == "" {
					extraContext = item.ExpansionPrompt
				}
			}
		}
	}
	nextSubtaskID := task.NextSubtaskID()

	taskJSON, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return nil, err
	}

	role := roleFor(args.Research)
	provider, err := t.deps.LLMs.ForRole(role)
	if err != nil {
		return nil, err
	}

	res, err := provider.GenerateObject(ctx, &llms.Request{
		Messages:   prompts.ExpandTask(string(taskJSON), numSubtasks, nextSubtaskID, extraContext),
		Schema:     tool.ReflectSchema(&subtasksPayload{}),
		ObjectName: "subtasks",
	})
	if err != nil {
		return nil, err
	}
	if !res.IsDelegation() {
		return nil, errUnexpectedCompletion(CommandExpandTask)
	}

	return delegationResult(res, CommandExpandTask, role, map[string]any{
		"taskId":              args.ID,
		"nextSubtaskId":       nextSubtaskID,
		"numSubtasksForAgent": numSubtasks,
		"force":               args.Force,
		"tagInfo":             tagInfo(tag),
	}), nil
}
