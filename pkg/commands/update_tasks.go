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

// CommandUpdateTasks is the originalCommand label of the bulk update tool.
// The tool itself keeps the short name "update".
const CommandUpdateTasks = "update-tasks"

type updateTasksArgs struct {
	From        int    `json:"from"`
	Prompt      string `json:"prompt"`
	Research    bool   `json:"research"`
	Tag         string `json:"tag"`
	ProjectRoot string `json:"projectRoot"`
}

// UpdateTasksTool rewrites every incomplete task from an id onward.
type UpdateTasksTool struct {
	deps *Deps
}

func NewUpdateTasksTool(deps *Deps) *UpdateTasksTool {
	return &UpdateTasksTool{deps: deps}
}

func (t *UpdateTasksTool) Name() string { return ToolUpdate }

func (t *UpdateTasksTool) Description() string {
	return "Update multiple upcoming tasks to reflect a change in direction."
}

func (t *UpdateTasksTool) Schema() map[string]any {
	return tool.ReflectSchema(&updateTasksArgs{})
}

func (t *UpdateTasksTool) Execute(ctx context.Context, call *tool.Call) (*tool.Result, error) {
	args := &updateTasksArgs{From: 1}
	if err := decodeArgs(call.Args, args); err != nil {
		return nil, err
	}
	if args.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if args.From <= 0 {
		args.From = 1
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

	// Completed tasks are excluded up front: the agent never sees them, and
	// the saver re-checks on the way back.
	var selected []taskstore.Task
	for _, task := range data.Tasks {
		if task.ID >= args.From && !task.Completed() {
			selected = append(selected, task)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no updatable tasks from id %d in tag %q", args.From, tag)
	}

	tasksJSON, err := json.MarshalIndent(selected, "", "  ")
	if err != nil {
		return nil, err
	}

	role := roleFor(args.Research)
	provider, err := t.deps.LLMs.ForRole(role)
	if err != nil {
		return nil, err
	}

	taskSchema := tool.ReflectSchema(&taskstore.Task{})
	res, err := provider.GenerateObject(ctx, &llms.Request{
		Messages:   prompts.UpdateTasks(string(tasksJSON), args.Prompt),
		Schema:     map[string]any{"type": "array", "items": taskSchema},
		ObjectName: "tasks",
	})
	if err != nil {
		return nil, err
	}
	if !res.IsDelegation() {
		return nil, errUnexpectedCompletion(CommandUpdateTasks)
	}

	return delegationResult(res, CommandUpdateTasks, role, map[string]any{
		"fromId":  args.From,
		"prompt":  args.Prompt,
		"tagInfo": tagInfo(tag),
	}), nil
}
