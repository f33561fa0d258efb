// ABOUTME: MCP server implementation for pubfeed
// ABOUTME: Provides tools, resources, and prompts for AI agents to inspect and build publication feeds

package mcp

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"

	"github.com/harper/pubfeed/internal/aggregate"
	"github.com/harper/pubfeed/internal/config"
	"github.com/harper/pubfeed/internal/paginate"
)

// Server wraps the MCP server with pubfeed-specific context
type Server struct {
	mcpServer *server.MCPServer
	cfg       *config.Config
	agg       *aggregate.Aggregator
	logger    *log.Logger
}

// NewServer creates a new MCP server instance. Artifacts produced by the
// generate_feeds tool are stored in sink.
func NewServer(cfg *config.Config, source paginate.PageSource, sink aggregate.Sink, logger *log.Logger, version string) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		cfg:    cfg,
		agg:    aggregate.New(source, sink, logger),
		logger: logger,
	}

	s.mcpServer = server.NewMCPServer(
		"pubfeed",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
