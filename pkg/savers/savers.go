// Package savers holds the per-command post-processors that turn an agent's
// completion payload into validated task store mutations.
//
// Savers are pure functions of (agent payload, original args, project root,
// logger): they validate shape, preserve completion invariants, and never
// touch the interaction registry. Dispatch is table-driven on the original
// command label, with the original tool name as an alias fallback.
package savers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rtmcrc/claude-task-master/pkg/interaction"
	"github.com/rtmcrc/claude-task-master/pkg/registry"
	"github.com/rtmcrc/claude-task-master/pkg/taskstore"
)

// Input carries everything a saver may consume.
type Input struct {
	// Output is the agent's finalLLMOutput, shape per the originating
	// command.
	Output any

	// Args are the original tool arguments, verbatim.
	Args map[string]any

	// Hints are the directive's requestParameters; every key present at
	// directive time arrives here unchanged.
	Hints map[string]any

	// Tag is the store tag recovered from the hints, already defaulted.
	Tag string

	// Now anchors every timestamp a saver writes, for deterministic
	// output.
	Now time.Time

	Logger *slog.Logger
}

// Saver persists one command's agent payload.
type Saver func(ctx context.Context, store *taskstore.Store, in *Input) error

// Registry is the static dispatch table. It implements the tool package's
// PostProcessor interface.
type Registry struct {
	savers     *registry.BaseRegistry[Saver]
	defaultTag string
}

// NewRegistry builds the table with every built-in saver registered.
func NewRegistry(defaultTag string) *Registry {
	if defaultTag == "" {
		defaultTag = "master"
	}
	r := &Registry{
		savers:     registry.NewBaseRegistry[Saver](),
		defaultTag: defaultTag,
	}

	for command, saver := range map[string]Saver{
		"parse-prd":          SaveImportedTasks,
		"expand-task":        SaveSubtasks,
		"analyze-complexity": SaveComplexityReport,
		"update-task":        SaveTaskUpdate,
		"update-subtask":     SaveSubtaskDetail,
		"update-tasks":       SaveBulkUpdate,
		"add-task":           SaveNewTask,
		"research":           SaveResearch,
	} {
		if err := r.savers.Register(command, saver); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds or aliases a saver; used by embedders and tests.
func (r *Registry) Register(key string, saver Saver) error {
	return r.savers.Register(key, saver)
}

// Run executes the saver matching a resolved interaction. Implements
// tool.PostProcessor.
func (r *Registry) Run(ctx context.Context, record *interaction.Record, finalOutput any) error {
	command := record.Details.OriginalCommand
	saver, ok := r.savers.Get(command)
	if !ok {
		// Aliased tools dispatch on the tool name instead.
		saver, ok = r.savers.Get(record.OriginalToolName)
	}
	if !ok {
		return fmt.Errorf("no post-processor for command %q (tool %q)", command, record.OriginalToolName)
	}

	store, err := taskstore.NewStore(record.Session.ProjectRoot, r.defaultTag)
	if err != nil {
		return err
	}

	logger := slog.Default().With("interaction", record.ID, "command", command)
	in := &Input{
		Output: finalOutput,
		Args:   record.OriginalToolArgs,
		Hints:  record.Details.RequestParameters,
		Tag:    recoverTag(record.Details.RequestParameters, r.defaultTag),
		Now:    time.Now().UTC(),
		Logger: logger,
	}

	if err := saver(ctx, store, in); err != nil {
		// The resolver already fired with the agent output; persistence
		// failures are an observability event, not an ack failure.
		logger.Error("Post-processor failed", "error", err)
		return err
	}
	logger.Info("Post-processor completed")
	return nil
}

func recoverTag(hints map[string]any, defaultTag string) string {
	if hints != nil {
		if tagInfo, ok := hints["tagInfo"].(map[string]any); ok {
			if tag, ok := tagInfo["currentTag"].(string); ok && tag != "" {
				return tag
			}
		}
	}
	return defaultTag
}
