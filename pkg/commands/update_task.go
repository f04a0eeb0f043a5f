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

// CommandUpdateTask is the originalCommand label of the update_task tool.
const CommandUpdateTask = "update-task"

type updateTaskArgs struct {
	ID          int    `json:"id"`
	Prompt      string `json:"prompt"`
	Append      bool   `json:"append"`
	Research    bool   `json:"research"`
	Tag         string `json:"tag"`
	ProjectRoot string `json:"projectRoot"`
}

// UpdateTaskTool rewrites one task, or appends a note in append mode.
type UpdateTaskTool struct {
	deps *Deps
}

func NewUpdateTaskTool(deps *Deps) *UpdateTaskTool {
	return &UpdateTaskTool{deps: deps}
}

func (t *UpdateTaskTool) Name() string { return ToolUpdateTask }

func (t *UpdateTaskTool) Description() string {
	return "Update a single task with new information, or append a timestamped note."
}

func (t *UpdateTaskTool) Schema() map[string]any {
	return tool.ReflectSchema(&updateTaskArgs{})
}

func (t *UpdateTaskTool) Execute(ctx context.Context, call *tool.Call) (*tool.Result, error) {
	args := &updateTaskArgs{}
	if err := decodeArgs(call.Args, args); err != nil {
		return nil, err
	}
	if args.ID <= 0 {
		return nil, fmt.Errorf("id is required")
	}
	if args.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	store, err := t.deps.storeFor(call)
	if err != nil {
		return nil, err
	}
	tag := store.ResolveTag(args.Tag)

	data, err := store.LoadTag(tag)
	if err != nil {
		return nil, err
	}
	task, ok := data.Task(args.ID)
	if !ok {
		return nil, fmt.Errorf("task %d not found in tag %q", args.ID, tag)
	}

	taskJSON, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return nil, err
	}

	role := roleFor(args.Research)
	provider, err := t.deps.LLMs.ForRole(role)
	if err != nil {
		return nil, err
	}

	var res *llms.Result
	if args.Append {
		res, err = provider.GenerateText(ctx, &llms.Request{
			Messages: prompts.AppendTask(string(taskJSON), args.Prompt),
		})
	} else {
		res, err = provider.GenerateObject(ctx, &llms.Request{
			Messages:   prompts.UpdateTask(string(taskJSON), args.Prompt),
			Schema:     tool.ReflectSchema(&taskstore.Task{}),
			ObjectName: "task",
		})
	}
	if err != nil {
		return nil, err
	}
	if !res.IsDelegation() {
		return nil, errUnexpectedCompletion(CommandUpdateTask)
	}

	return delegationResult(res, CommandUpdateTask, role, map[string]any{
		"taskId":  args.ID,
		"append":  args.Append,
		"prompt":  args.Prompt,
		"tagInfo": tagInfo(tag),
	}), nil
}
