package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/elicit/pkg/adapters/mcp"
)

var mcpSSEPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server (stdio by default)",
	Long: `Mcp exposes sessions as MCP tools (start_session, resume_session,
inspect_session, list_sessions) so agent hosts can drive clarification
workflows. Serves stdio by default; --sse-port switches to SSE.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().IntVar(&mcpSSEPort, "sse-port", 0, "serve SSE on this port instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, cleanup, err := openStore(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer func() { _ = cleanup() }()
	}

	engine, err := newEngine(cfg, store, logger)
	if err != nil {
		return err
	}

	server := mcp.NewServer(engine, engine.Sessions())

	if mcpSSEPort > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.ServeSSE(ctx, mcpSSEPort)
	}
	return server.ServeStdio()
}
