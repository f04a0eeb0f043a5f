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

// CommandAnalyzeComplexity is the originalCommand label of
// analyze_project_complexity.
const CommandAnalyzeComplexity = "analyze-complexity"

const defaultComplexityThreshold = 5

type analyzeComplexityArgs struct {
	IDs         string `json:"ids"`
	From        int    `json:"from"`
	To          int    `json:"to"`
	Threshold   int    `json:"threshold"`
	Research    bool   `json:"research"`
	Tag         string `json:"tag"`
	ProjectRoot string `json:"projectRoot"`
}

// AnalyzeComplexityTool scores task complexity and recommends expansions.
type AnalyzeComplexityTool struct {
	deps *Deps
}

func NewAnalyzeComplexityTool(deps *Deps) *AnalyzeComplexityTool {
	return &AnalyzeComplexityTool{deps: deps}
}

func (t *AnalyzeComplexityTool) Name() string { return ToolAnalyzeComplexity }

func (t *AnalyzeComplexityTool) Description() string {
	return "Analyze task complexity and produce expansion recommendations."
}

func (t *AnalyzeComplexityTool) Schema() map[string]any {
	return tool.ReflectSchema(&analyzeComplexityArgs{})
}

func (t *AnalyzeComplexityTool) Execute(ctx context.Context, call *tool.Call) (*tool.Result, error) {
	args := &analyzeComplexityArgs{Threshold: defaultComplexityThreshold}
	if err := decodeArgs(call.Args, args); err != nil {
		return nil, err
	}
	if args.Threshold <= 0 {
		args.Threshold = defaultComplexityThreshold
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

	ids, err := parseIDList(args.IDs)
	if err != nil {
		return nil, err
	}
	targeted := len(ids) > 0 || args.From > 0 || args.To > 0

	selected := selectTasks(data.Tasks, ids, args.From, args.To)
	if len(selected) == 0 {
		return nil, fmt.Errorf("no tasks to analyze in tag %q", tag)
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

	itemSchema := tool.ReflectSchema(&taskstore.ComplexityItem{})
	res, err := provider.GenerateObject(ctx, &llms.Request{
		Messages:   prompts.AnalyzeComplexity(string(tasksJSON), args.Threshold, args.Research),
		Schema:     map[string]any{"type": "array", "items": itemSchema},
		ObjectName: "complexityAnalysis",
	})
	if err != nil {
		return nil, err
	}
	if !res.IsDelegation() {
		return nil, errUnexpectedCompletion(CommandAnalyzeComplexity)
	}

	return delegationResult(res, CommandAnalyzeComplexity, role, map[string]any{
		"threshold":   args.Threshold,
		"targeted":    targeted,
		"analyzedIds": taskIDs(selected),
		"useResearch": args.Research,
		"tagInfo":     tagInfo(tag),
	}), nil
}

// selectTasks filters by explicit ids or an id range; both empty selects all.
func selectTasks(tasks []taskstore.Task, ids []int, from, to int) []taskstore.Task {
	if len(ids) == 0 && from == 0 && to == 0 {
		return tasks
	}
	idSet := make(map[int]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	var out []taskstore.Task
	for _, task := range tasks {
		inRange := (from == 0 || task.ID >= from) && (to == 0 || task.ID <= to)
		if idSet[task.ID] || (len(ids) == 0 && inRange) {
			out = append(out, task)
		}
	}
	return out
}

func taskIDs(tasks []taskstore.Task) []int {
	ids := make([]int, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}
