// Package server assembles the tool channel and exposes it over MCP.
//
// Transports: stdio (the default, for editor-driven agents) and http, which
// hosts the SSE endpoints plus /healthz, and /metrics when server.metrics is
// set.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rtmcrc/claude-task-master/pkg/broker"
	"github.com/rtmcrc/claude-task-master/pkg/commands"
	"github.com/rtmcrc/claude-task-master/pkg/config"
	"github.com/rtmcrc/claude-task-master/pkg/interaction"
	"github.com/rtmcrc/claude-task-master/pkg/llms"
	"github.com/rtmcrc/claude-task-master/pkg/observability"
	"github.com/rtmcrc/claude-task-master/pkg/savers"
	"github.com/rtmcrc/claude-task-master/pkg/tool"
)

// Name and version advertised to MCP clients.
const (
	serverName    = "task-master"
	serverVersion = "1.0.0"
)

// Server wires every component and serves the configured transport.
type Server struct {
	cfg          *config.Config
	channel      *tool.Channel
	interactions *interaction.Registry
	metrics      *observability.PrometheusMetrics
	mcp          *server.MCPServer
}

// New builds a fully wired server from configuration.
func New(cfg *config.Config) (*Server, error) {
	llmRegistry, err := llms.NewRegistryFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build LLM registry: %w", err)
	}

	saverRegistry := savers.NewRegistry(cfg.DefaultTag)
	interactions := interaction.NewRegistry(cfg.DelegationTTL())
	wrapper := tool.NewWrapper(interactions, saverRegistry, cfg.DefaultTag)
	channel := tool.NewChannel(wrapper)

	deps := &commands.Deps{LLMs: llmRegistry, DefaultTag: cfg.DefaultTag}
	for _, t := range []tool.Tool{
		broker.New(),
		commands.NewParsePRDTool(deps),
		commands.NewExpandTaskTool(deps),
		commands.NewAnalyzeComplexityTool(deps),
		commands.NewUpdateTaskTool(deps),
		commands.NewUpdateSubtaskTool(deps),
		commands.NewUpdateTasksTool(deps),
		commands.NewAddTaskTool(deps),
		commands.NewResearchTool(deps),
	} {
		if err := channel.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", t.Name(), err)
		}
	}

	s := &Server{
		cfg:          cfg,
		channel:      channel,
		interactions: interactions,
	}

	if cfg.Server.Metrics {
		s.metrics = observability.NewPrometheusMetrics()
		observability.SetGlobal(s.metrics)
	}

	mcpServer := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	if err := s.registerMCPTools(mcpServer); err != nil {
		return nil, err
	}
	s.mcp = mcpServer

	return s, nil
}

// Channel exposes the tool channel, mainly for tests and embedders.
func (s *Server) Channel() *tool.Channel {
	return s.channel
}

// Interactions exposes the interaction registry.
func (s *Server) Interactions() *interaction.Registry {
	return s.interactions
}

// Run serves the configured transport until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.interactions.StartReaper(ctx, interaction.DefaultReapInterval)

	switch s.cfg.Server.Transport {
	case "http":
		return s.runHTTP(ctx)
	default:
		slog.Info("Serving MCP over stdio", "tools", len(s.channel.Names()))
		return server.ServeStdio(s.mcp)
	}
}

func (s *Server) runHTTP(ctx context.Context) error {
	sseServer := server.NewSSEServer(s.mcp)

	router := chi.NewRouter()
	router.Handle("/sse", sseServer.SSEHandler())
	router.Handle("/message", sseServer.MessageHandler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler())
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("Serving MCP over HTTP", "addr", addr, "tools", len(s.channel.Names()))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
