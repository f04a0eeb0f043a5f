package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rtmcrc/claude-task-master/pkg/llms"
	"github.com/rtmcrc/claude-task-master/pkg/prompts"
	"github.com/rtmcrc/claude-task-master/pkg/tool"
)

// CommandUpdateSubtask is the originalCommand label of update_subtask.
const CommandUpdateSubtask = "update-subtask"

type updateSubtaskArgs struct {
	// ID is the dotted subtask id, e.g. "5.2".
	ID          string `json:"id"`
	Prompt      string `json:"prompt"`
	Research    bool   `json:"research"`
	Tag         string `json:"tag"`
	ProjectRoot string `json:"projectRoot"`
}

// UpdateSubtaskTool appends a timestamped progress note to a subtask.
type UpdateSubtaskTool struct {
	deps *Deps
}

func NewUpdateSubtaskTool(deps *Deps) *UpdateSubtaskTool {
	return &UpdateSubtaskTool{deps: deps}
}

func (t *UpdateSubtaskTool) Name() string { return ToolUpdateSubtask }

func (t *UpdateSubtaskTool) Description() string {
	return "Append timestamped implementation notes to a subtask."
}

func (t *UpdateSubtaskTool) Schema() map[string]any {
	return tool.ReflectSchema(&updateSubtaskArgs{})
}

func (t *UpdateSubtaskTool) Execute(ctx context.Context, call *tool.Call) (*tool.Result, error) {
	args := &updateSubtaskArgs{}
	if err := decodeArgs(call.Args, args); err != nil {
		return nil, err
	}
	parentID, subtaskID, err := ParseSubtaskID(args.ID)
	if err != nil {
		return nil, err
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
	task, ok := data.Task(parentID)
	if !ok {
		return nil, fmt.Errorf("task %d not found in tag %q", parentID, tag)
	}
	subtask, ok := task.Subtask(subtaskID)
	if !ok {
		return nil, fmt.Errorf("subtask %s not found in tag %q", args.ID, tag)
	}

	subtaskJSON, err := json.MarshalIndent(subtask, "", "  ")
	if err != nil {
		return nil, err
	}

	role := roleFor(args.Research)
	provider, err := t.deps.LLMs.ForRole(role)
	if err != nil {
		return nil, err
	}

	res, err := provider.GenerateText(ctx, &llms.Request{
		Messages: prompts.UpdateSubtask(string(subtaskJSON), args.Prompt),
	})
	if err != nil {
		return nil, err
	}
	if !res.IsDelegation() {
		return nil, errUnexpectedCompletion(CommandUpdateSubtask)
	}

	return delegationResult(res, CommandUpdateSubtask, role, map[string]any{
		"parentId":  parentID,
		"subtaskId": subtaskID,
		"prompt":    args.Prompt,
		"tagInfo":   tagInfo(tag),
	}), nil
}

// ParseSubtaskID splits a dotted "parent.subtask" id.
func ParseSubtaskID(id string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(id), ".")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("subtask id must be in parent.subtask form, got %q", id)
	}
	parent, err := strconv.Atoi(parts[0])
	if err != nil || parent <= 0 {
		return 0, 0, fmt.Errorf("invalid parent id in %q", id)
	}
	sub, err := strconv.Atoi(parts[1])
	if err != nil || sub <= 0 {
		return 0, 0, fmt.Errorf("invalid subtask id in %q", id)
	}
	return parent, sub, nil
}
