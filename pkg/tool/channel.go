package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/rtmcrc/claude-task-master/pkg/observability"
	"github.com/rtmcrc/claude-task-master/pkg/registry"
)

// Channel is the tool registry plus the invocation path. Every invocation
// runs through the wrapper, which implements the delegation protocol around
// the wrapped tool.
type Channel struct {
	tools   *registry.BaseRegistry[Tool]
	wrapper *Wrapper
}

// NewChannel creates a channel whose invocations are interposed by wrapper.
func NewChannel(wrapper *Wrapper) *Channel {
	c := &Channel{
		tools:   registry.NewBaseRegistry[Tool](),
		wrapper: wrapper,
	}
	wrapper.bind(c)
	return c
}

// Register installs a tool.
func (c *Channel) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	return c.tools.Register(t.Name(), t)
}

// Get returns a registered tool.
func (c *Channel) Get(name string) (Tool, bool) {
	return c.tools.Get(name)
}

// Names returns registered tool names in sorted order.
func (c *Channel) Names() []string {
	return c.tools.Names()
}

// Invoke executes a registered tool through the wrapper.
func (c *Channel) Invoke(ctx context.Context, name string, call *Call) (*Result, error) {
	t, ok := c.tools.Get(name)
	if !ok {
		return nil, fmt.Errorf("tool %q not found", name)
	}

	call.Logger.Debug("Tool invocation started", "tool", name)
	start := time.Now()

	result, err := c.wrapper.Execute(ctx, t, call)

	duration := time.Since(start)
	observability.Global().ToolCall(name, duration, err)
	if err != nil {
		call.Logger.Error("Tool invocation failed", "tool", name, "duration_ms", duration.Milliseconds(), "error", err)
	} else {
		call.Logger.Debug("Tool invocation completed", "tool", name, "duration_ms", duration.Milliseconds())
	}
	return result, err
}
