// Command taskmaster is the MCP server for the delegated task manager.
//
// Usage:
//
//	taskmaster serve
//	taskmaster serve --config taskmaster.yaml --log-level debug
//	taskmaster validate --config taskmaster.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	taskmaster "github.com/rtmcrc/claude-task-master"
	"github.com/rtmcrc/claude-task-master/pkg/config"
	"github.com/rtmcrc/claude-task-master/pkg/logger"
	"github.com/rtmcrc/claude-task-master/pkg/server"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the MCP server."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	fmt.Printf("taskmaster version %s\n", taskmaster.Version)
	return nil
}

// ServeCmd starts the MCP server.
type ServeCmd struct {
	Watch bool `help:"Reload configuration on file change."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	closer, err := logger.InitFromConfig(cfg.Logger.Level, cfg.Logger.File, cfg.Logger.Format)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Watch && cli.Config != "" {
		stopWatch := make(chan struct{})
		defer close(stopWatch)
		go func() {
			_ = config.Watch(cli.Config, func(next *config.Config) {
				// Transport changes need a restart; logging applies live.
				_, _ = logger.InitFromConfig(next.Logger.Level, next.Logger.File, next.Logger.Format)
			}, stopWatch)
		}()
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	slog.Info("Task Master starting", "version", taskmaster.Version, "transport", cfg.Server.Transport)
	return srv.Run(ctx)
}

// ValidateCmd loads and validates the configuration, printing the effective
// document.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Configuration OK\n\n%s", out)
	return nil
}

func loadConfig(cli *CLI) (*config.Config, error) {
	config.LoadDotEnv()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}

	// CLI flags win over the config file.
	if cli.LogLevel != "" {
		cfg.Logger.Level = cli.LogLevel
	}
	if cli.LogFile != "" {
		cfg.Logger.File = cli.LogFile
	}
	if cli.LogFormat != "" {
		cfg.Logger.Format = cli.LogFormat
	}
	return cfg, nil
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("taskmaster"),
		kong.Description("Delegated LLM task manager over MCP."),
		kong.UsageOnError(),
	)
	if err := kctx.Run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
