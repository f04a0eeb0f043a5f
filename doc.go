// Package taskmaster provides a delegated LLM interaction broker for
// task-management tooling.
//
// The host process exposes task-management tools over MCP but never calls an
// LLM itself: every model-requiring command pauses mid-execution, serializes
// its would-be LLM call into a delegation directive, and resumes when the
// driving agent returns a completion envelope through the agent_llm tool.
//
// # Quick Start
//
// Install the server:
//
//	go install github.com/rtmcrc/claude-task-master/cmd/taskmaster@latest
//
// Start it on stdio for an MCP client:
//
//	taskmaster serve
//
// Or over HTTP with metrics:
//
//	taskmaster serve --config taskmaster.yaml
//
// with:
//
//	server:
//	  transport: http
//	  port: 8080
//	  metrics: true
//
// # Architecture
//
// See pkg/tool for the wrapper implementing the delegation protocol,
// pkg/interaction for the pending-interaction registry, pkg/broker for the
// bidirectional agent_llm tool, and pkg/savers for the per-command
// post-processors that persist agent results into .taskmaster/.
package taskmaster
