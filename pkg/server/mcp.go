package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rtmcrc/claude-task-master/pkg/interaction"
	"github.com/rtmcrc/claude-task-master/pkg/protocol"
	"github.com/rtmcrc/claude-task-master/pkg/tool"
)

// registerMCPTools bridges every channel tool onto the MCP server.
func (s *Server) registerMCPTools(mcpServer *server.MCPServer) error {
	for _, name := range s.channel.Names() {
		t, ok := s.channel.Get(name)
		if !ok {
			continue
		}

		schema, err := json.Marshal(t.Schema())
		if err != nil {
			return fmt.Errorf("tool %s has an unencodable schema: %w", t.Name(), err)
		}

		mcpTool := mcp.Tool{
			Name:           t.Name(),
			Description:    t.Description(),
			RawInputSchema: json.RawMessage(schema),
		}
		mcpServer.AddTool(mcpTool, s.handlerFor(t.Name()))
	}
	return nil
}

// handlerFor adapts one channel tool to the MCP handler contract.
func (s *Server) handlerFor(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		session, err := sessionFrom(ctx, args)
		if err != nil {
			return toolError(err), nil
		}

		result, err := s.channel.Invoke(ctx, name, &tool.Call{
			Args:    args,
			Session: session,
			Logger:  slog.Default().With("tool", name, "session", session.ID),
		})
		if err != nil {
			return toolError(err), nil
		}
		return toMCPResult(result)
	}
}

// sessionFrom resolves the caller session. projectRoot is a required
// absolute path on every tool of this server.
func sessionFrom(ctx context.Context, args map[string]any) (interaction.Session, error) {
	root, _ := args["projectRoot"].(string)
	if root == "" {
		return interaction.Session{}, fmt.Errorf("projectRoot is required")
	}
	if !filepath.IsAbs(root) {
		return interaction.Session{}, fmt.Errorf("projectRoot must be an absolute path, got %q", root)
	}

	id := "stdio"
	if clientSession := server.ClientSessionFromContext(ctx); clientSession != nil {
		id = clientSession.SessionID()
	}
	return interaction.Session{ID: id, ProjectRoot: root}, nil
}

// toMCPResult renders a channel result: the structured value as JSON text,
// plus any embedded resources.
func toMCPResult(result *tool.Result) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(result.Value, "", "  ")
	if err != nil {
		return nil, err
	}

	content := []mcp.Content{mcp.NewTextContent(string(payload))}
	for _, resource := range result.Resources {
		mimeType := resource.MIMEType
		if mimeType == "" {
			mimeType = "application/json"
		}
		content = append(content, mcp.NewEmbeddedResource(mcp.TextResourceContents{
			URI:      resource.URI,
			MIMEType: mimeType,
			Text:     resource.Text,
		}))
	}
	return &mcp.CallToolResult{Content: content}, nil
}

// toolError renders an error as a tool failure. Protocol errors keep their
// code so the agent can react to ERR_* values.
func toolError(err error) *mcp.CallToolResult {
	var protoErr *protocol.Error
	if errors.As(err, &protoErr) {
		payload, marshalErr := json.Marshal(protoErr)
		if marshalErr == nil {
			return mcp.NewToolResultError(string(payload))
		}
	}
	return mcp.NewToolResultError(err.Error())
}
