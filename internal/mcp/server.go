// Package mcp exposes the screening engine to MCP clients over stdio, so
// agent frontends can run note checks through the check_note tool.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/redflag-advisory-server/internal/modelflag"
	"github.com/redflag-advisory-server/internal/service"
)

// Server wraps the MCP SDK server around the screening engine.
type Server struct {
	mcpServer *mcp.Server
	checker   *service.Checker
	provider  modelflag.Provider
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance. provider may be nil, the
// check_note tool then always reports degraded results.
func NewServer(checker *service.Checker, provider modelflag.Provider, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	serverInfo := &mcp.Implementation{
		Name:    "redflag-advisory-server",
		Version: "v0.1.0",
	}

	s := &Server{
		mcpServer: mcp.NewServer(serverInfo, nil),
		checker:   checker,
		provider:  provider,
		logger:    logger,
	}
	s.registerTools()
	return s
}

// registerTools registers the screening tools with the MCP SDK.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "check_note",
		Description: "Screen the fields of a clinical note for red flags and return severity-ordered advisories.",
	}, s.handleCheckNote)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_rules",
		Description: "List the active red-flag rules and the rule load report.",
	}, s.handleListRules)

	s.logger.Info("Registered MCP tools")
}

// Start runs the MCP server over stdio until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio...")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
