package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/rtmcrc/claude-task-master/pkg/llms"
	"github.com/rtmcrc/claude-task-master/pkg/prompts"
	"github.com/rtmcrc/claude-task-master/pkg/tool"
)

// CommandResearch is the originalCommand label of the research tool.
const CommandResearch = "research"

type researchArgs struct {
	Query string `json:"query"`

	// SaveTo optionally appends the result to a task ("5") or subtask
	// ("5.2").
	SaveTo string `json:"saveTo"`

	// SaveToFile writes the result as a Markdown document under
	// .taskmaster/docs/research/.
	SaveToFile bool `json:"saveToFile"`

	// TaskIDs selects tasks included as context, e.g. "3,5".
	TaskIDs string `json:"taskIds"`

	// DetailLevel is low, medium or high.
	DetailLevel string `json:"detailLevel"`

	Tag         string `json:"tag"`
	ProjectRoot string `json:"projectRoot"`
}

// ResearchTool answers a technical question with project context.
type ResearchTool struct {
	deps *Deps
}

func NewResearchTool(deps *Deps) *ResearchTool {
	return &ResearchTool{deps: deps}
}

func (t *ResearchTool) Name() string { return ToolResearch }

func (t *ResearchTool) Description() string {
	return "Research a technical question with project task context."
}

func (t *ResearchTool) Schema() map[string]any {
	return tool.ReflectSchema(&researchArgs{})
}

func (t *ResearchTool) Execute(ctx context.Context, call *tool.Call) (*tool.Result, error) {
	args := &researchArgs{DetailLevel: "medium"}
	if err := decodeArgs(call.Args, args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if args.SaveTo != "" && strings.Contains(args.SaveTo, ".") {
		if _, _, err := ParseSubtaskID(args.SaveTo); err != nil {
			return nil, err
		}
	}

	store, err := t.deps.storeFor(call)
	if err != nil {
		return nil, err
	}
	tag := store.ResolveTag(args.Tag)

	contextText, err := t.gatherContext(store, tag, args.TaskIDs)
	if err != nil {
		return nil, err
	}
	contextTokens := llms.EstimateTokens(contextText)

	provider, err := t.deps.LLMs.ForRole("research")
	if err != nil {
		return nil, err
	}

	res, err := provider.GenerateText(ctx, &llms.Request{
		Messages: prompts.Research(args.Query, contextText, args.DetailLevel),
	})
	if err != nil {
		return nil, err
	}
	if !res.IsDelegation() {
		return nil, errUnexpectedCompletion(CommandResearch)
	}

	return delegationResult(res, CommandResearch, "research", map[string]any{
		"query":         args.Query,
		"saveTo":        args.SaveTo,
		"saveToFile":    args.SaveToFile,
		"detailLevel":   args.DetailLevel,
		"contextTokens": contextTokens,
		"tagInfo":       tagInfo(tag),
	}), nil
}

func (t *ResearchTool) gatherContext(store storeLoader, tag, taskIDs string) (string, error) {
	ids, err := parseIDList(taskIDs)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}

	data, err := store.LoadTag(tag)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, id := range ids {
		task, ok := data.Task(id)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "Task %d: %s\n%s\n\n", task.ID, task.Title, task.Description)
	}
	return strings.TrimSpace(b.String()), nil
}
