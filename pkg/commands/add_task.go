package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/rtmcrc/claude-task-master/pkg/llms"
	"github.com/rtmcrc/claude-task-master/pkg/prompts"
	"github.com/rtmcrc/claude-task-master/pkg/tool"
)

// CommandAddTask is the originalCommand label of the add_task tool.
const CommandAddTask = "add-task"

// draftTask is the structured output requested for a new task. The id,
// dependencies and priority chosen by the user are composed in by the saver.
type draftTask struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Details      string `json:"details"`
	TestStrategy string `json:"testStrategy"`
	Dependencies []int  `json:"dependencies"`
}

type addTaskArgs struct {
	Prompt       string `json:"prompt"`
	Dependencies string `json:"dependencies"`
	Priority     string `json:"priority"`
	Research     bool   `json:"research"`
	Tag          string `json:"tag"`
	ProjectRoot  string `json:"projectRoot"`
}

// AddTaskTool drafts a new task from a description.
type AddTaskTool struct {
	deps *Deps
}

func NewAddTaskTool(deps *Deps) *AddTaskTool {
	return &AddTaskTool{deps: deps}
}

func (t *AddTaskTool) Name() string { return ToolAddTask }

func (t *AddTaskTool) Description() string {
	return "Add a new task drafted from a natural-language description."
}

func (t *AddTaskTool) Schema() map[string]any {
	return tool.ReflectSchema(&addTaskArgs{})
}

func (t *AddTaskTool) Execute(ctx context.Context, call *tool.Call) (*tool.Result, error) {
	args := &addTaskArgs{}
	if err := decodeArgs(call.Args, args); err != nil {
		return nil, err
	}
	if args.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	userDeps, err := parseIDList(args.Dependencies)
	if err != nil {
		return nil, err
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
	newTaskID := data.MaxTaskID() + 1

	var summary strings.Builder
	for _, task := range data.Tasks {
		fmt.Fprintf(&summary, "%d: %s [%s]\n", task.ID, task.Title, task.Status)
	}
	if summary.Len() == 0 {
		summary.WriteString("(none)\n")
	}

	role := roleFor(args.Research)
	provider, err := t.deps.LLMs.ForRole(role)
	if err != nil {
		return nil, err
	}

	res, err := provider.GenerateObject(ctx, &llms.Request{
		Messages:   prompts.AddTask(args.Prompt, newTaskID, summary.String()),
		Schema:     tool.ReflectSchema(&draftTask{}),
		ObjectName: "task",
	})
	if err != nil {
		return nil, err
	}
	if !res.IsDelegation() {
		return nil, errUnexpectedCompletion(CommandAddTask)
	}

	return delegationResult(res, CommandAddTask, role, map[string]any{
		"newTaskId":        newTaskID,
		"userDependencies": userDeps,
		"userPriority":     args.Priority,
		"tagInfo":          tagInfo(tag),
	}), nil
}
