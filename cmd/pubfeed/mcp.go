// ABOUTME: MCP server command for pubfeed CLI
// ABOUTME: Starts stdio-based MCP server for AI agent integration

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/pubfeed/internal/aggregate"
	"github.com/harper/pubfeed/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agents",
	Long: `Start the Model Context Protocol (MCP) server on stdio.

This allows AI agents like Claude to list collections, preview their
items, render feeds and regenerate the output directory through
structured tools.

The server communicates via JSON-RPC on stdin/stdout, so logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := mcp.NewServer(cfg, cfg.NewClient(logger), aggregate.NewDirSink(cfg.Output.Dir), logger, Version)

		if err := server.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
