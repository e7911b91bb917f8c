package main

import (
	"context"

	"github.com/spf13/cobra"

	"triage/internal/logging"
	mcpserver "triage/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing the analysis tools
(analyze_build, recurring_failures, classify_failure, build_trend) to
MCP clients.

The server monitors for parent process death. When the client
disconnects, the server self-terminates to prevent zombie processes.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := mcpserver.NewServer(cfg, st)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting triage MCP server over stdio (parent watchdog active)")
	return srv.Run(ctx)
}
