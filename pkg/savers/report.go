package savers

import (
	"context"
	"fmt"

	"github.com/rtmcrc/claude-task-master/pkg/taskstore"
)

type reportPayload struct {
	Analysis []taskstore.ComplexityItem `json:"complexityAnalysis"`
}

// SaveComplexityReport persists an analyze-complexity result. A targeted
// analysis merges into the existing report; a full analysis overwrites it.
// The meta block is synthesized from the original call, not trusted from
// the agent.
func SaveComplexityReport(ctx context.Context, store *taskstore.Store, in *Input) error {
	var items []taskstore.ComplexityItem
	wrapped := &reportPayload{}
	if err := decodePayload(in.Output, &items); err != nil {
		if err2 := decodePayload(in.Output, wrapped); err2 != nil || len(wrapped.Analysis) == 0 {
			return err
		}
		items = wrapped.Analysis
	}
	if len(items) == 0 {
		return fmt.Errorf("agent returned no analysis items")
	}
	for _, item := range items {
		if item.TaskID <= 0 {
			return fmt.Errorf("analysis item has invalid taskId %d", item.TaskID)
		}
	}

	threshold, _ := hintInt(in.Hints, "threshold")

	var report *taskstore.ComplexityReport
	if hintBool(in.Hints, "targeted") {
		existing, err := store.LoadReport()
		if err != nil {
			return err
		}
		report = taskstore.MergeReport(existing, items)
	} else {
		report = &taskstore.ComplexityReport{Analysis: items}
	}

	report.Meta = taskstore.ComplexityMeta{
		GeneratedAt:   in.Now,
		TasksAnalyzed: len(items),
		Threshold:     threshold,
		UsedResearch:  hintBool(in.Hints, "useResearch"),
	}

	return store.SaveReport(report)
}
