// Package commands implements the delegating task-management tools.
//
// Every core here calls its LLM role through the provider registry and
// inspects the result: a delegation token is turned into a pending
// interaction object for the tool wrapper, never used as a completion. The
// hints a saver will need on resumption travel inside requestParameters.
package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/rtmcrc/claude-task-master/pkg/llms"
	"github.com/rtmcrc/claude-task-master/pkg/protocol"
	"github.com/rtmcrc/claude-task-master/pkg/taskstore"
	"github.com/rtmcrc/claude-task-master/pkg/tool"
)

// Tool names on the channel. The bulk update tool keeps its historical
// short name; its directive carries originalCommand update-tasks.
const (
	ToolParsePRD          = "parse_prd"
	ToolExpandTask        = "expand_task"
	ToolAnalyzeComplexity = "analyze_project_complexity"
	ToolUpdateTask        = "update_task"
	ToolUpdateSubtask     = "update_subtask"
	ToolUpdate            = "update"
	ToolAddTask           = "add_task"
	ToolResearch          = "research"
)

// storeLoader is the read-side of the task store, narrowed for context
// gathering.
type storeLoader interface {
	LoadTag(tag string) (*taskstore.TagData, error)
}

// Deps are the collaborators shared by all command cores.
type Deps struct {
	LLMs       *llms.Registry
	DefaultTag string
}

// storeFor opens the task store for the calling session.
func (d *Deps) storeFor(call *tool.Call) (*taskstore.Store, error) {
	return taskstore.NewStore(call.Session.ProjectRoot, d.DefaultTag)
}

// decodeArgs maps loosely-typed channel arguments onto a typed args struct.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// delegationResult wraps a provider delegation token into the pending
// interaction object the wrapper detects. hints are merged into the
// directive's requestParameters and recovered verbatim by the saver.
func delegationResult(res *llms.Result, command, role string, hints map[string]any) *tool.Result {
	params := protocol.ToMap(res.Details)
	for k, v := range hints {
		params[k] = v
	}

	return tool.NewDelegationResult(&protocol.PendingInteraction{
		Type:          protocol.PendingInteractionType,
		InteractionID: res.InteractionID,
		DelegatedCallDetails: &protocol.DelegatedCallDetails{
			OriginalCommand:   command,
			Role:              role,
			ServiceType:       res.Details.ServiceType,
			RequestParameters: params,
		},
	})
}

// errUnexpectedCompletion guards cores against a provider that actually
// completed: this build constructs only the delegating provider, so a
// completion here means a miswired registry.
func errUnexpectedCompletion(command string) error {
	return fmt.Errorf("%s: provider returned a direct completion; this host delegates all LLM calls", command)
}

// tagInfo builds the tag hint carried by every directive.
func tagInfo(tag string) map[string]any {
	return map[string]any{"currentTag": tag}
}

// parseIDList parses "1,3,5" into ints, ignoring blanks.
func parseIDList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// roleFor picks the research role when requested, main otherwise.
func roleFor(useResearch bool) string {
	if useResearch {
		return "research"
	}
	return "main"
}
