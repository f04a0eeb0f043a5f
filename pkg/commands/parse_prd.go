package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rtmcrc/claude-task-master/pkg/llms"
	"github.com/rtmcrc/claude-task-master/pkg/prompts"
	"github.com/rtmcrc/claude-task-master/pkg/taskstore"
	"github.com/rtmcrc/claude-task-master/pkg/tool"
)

// CommandParsePRD is the originalCommand label of the parse_prd tool.
const CommandParsePRD = "parse-prd"

// tasksPayload is the structured output requested from the agent's LLM.
type tasksPayload struct {
	Tasks    []taskstore.Task `json:"tasks"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

type parsePRDArgs struct {
	Input       string `json:"input"`
	NumTasks    int    `json:"numTasks"`
	Force       bool   `json:"force"`
	Append      bool   `json:"append"`
	Tag         string `json:"tag"`
	ProjectRoot string `json:"projectRoot"`
}

// ParsePRDTool turns a PRD document into a fresh task list.
type ParsePRDTool struct {
	deps *Deps
}

func NewParsePRDTool(deps *Deps) *ParsePRDTool {
	return &ParsePRDTool{deps: deps}
}

func (t *ParsePRDTool) Name() string { return ToolParsePRD }

func (t *ParsePRDTool) Description() string {
	return "Parse a product requirements document into a structured task list."
}

func (t *ParsePRDTool) Schema() map[string]any {
	return tool.ReflectSchema(&parsePRDArgs{})
}

func (t *ParsePRDTool) Execute(ctx context.Context, call *tool.Call) (*tool.Result, error) {
	args := &parsePRDArgs{NumTasks: 10}
	if err := decodeArgs(call.Args, args); err != nil {
		return nil, err
	}
	if args.NumTasks <= 0 {
		args.NumTasks = 10
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
	if len(data.Tasks) > 0 && !args.Force && !args.Append {
		return nil, fmt.Errorf("tag %q already has %d tasks; pass force to overwrite or append to extend", tag, len(data.Tasks))
	}
	nextTaskID := 1
	if args.Append {
		nextTaskID = data.MaxTaskID() + 1
	}

	inputPath := args.Input
	if inputPath == "" {
		inputPath = filepath.Join(taskstore.DocsDir, "prd.txt")
	}
	if !filepath.IsAbs(inputPath) {
		inputPath = filepath.Join(call.Session.ProjectRoot, inputPath)
	}
	prdText, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PRD: %w", err)
	}

	provider, err := t.deps.LLMs.ForRole("main")
	if err != nil {
		return nil, err
	}

	res, err := provider.GenerateObject(ctx, &llms.Request{
		Messages:   prompts.ParsePRD(string(prdText), args.NumTasks, nextTaskID),
		Schema:     tool.ReflectSchema(&tasksPayload{}),
		ObjectName: "tasks",
	})
	if err != nil {
		return nil, err
	}
	if !res.IsDelegation() {
		return nil, errUnexpectedCompletion(CommandParsePRD)
	}

	return delegationResult(res, CommandParsePRD, "main", map[string]any{
		"numTasks":   args.NumTasks,
		"nextTaskId": nextTaskID,
		"append":     args.Append,
		"force":      args.Force,
		"input":      inputPath,
		"tagInfo":    tagInfo(tag),
	}), nil
}
