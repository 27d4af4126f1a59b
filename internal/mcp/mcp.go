// Package mcp implements the Model Context Protocol server for VIGIL.
//
// The MCP server exposes the deterministic GO95 tools, the fire season
// countdown, document search and the copilot orchestrator to
// MCP-compatible agents.
package mcp

import (
	"context"
	"log/slog"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/vigil-grid/vigil/internal/copilot"
	"github.com/vigil-grid/vigil/internal/search"
)

// ChatService answers questions through the copilot orchestrator.
type ChatService interface {
	Process(ctx context.Context, req copilot.Request) copilot.Reply
}

// sessionWindow is how long an MCP client keeps its copilot conversation
// between calls.
const sessionWindow = 30 * time.Minute

// Server wraps the MCP server with VIGIL's services.
type Server struct {
	mcpServer *mcpserver.MCPServer
	chat      ChatService
	searcher  search.Searcher
	sessions  *sessionTracker
	logger    *slog.Logger
	now       func() time.Time
}

// New creates and configures an MCP server with all resources, tools and
// prompts. chat and searcher may be nil; the tools that need them then
// report an error result.
func New(chat ChatService, searcher search.Searcher, logger *slog.Logger, version string) *Server {
	s := &Server{
		chat:     chat,
		searcher: searcher,
		sessions: newSessionTracker(sessionWindow),
		logger:   logger.With("component", "mcp"),
		now:      time.Now,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"vigil",
		version,
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(serverInstructions),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

const serverInstructions = `VIGIL is a wildfire risk planning assistant for an electric utility.

Use clearance_requirement and compliance_gap for CPUC GO95 Rule 35 vegetation
clearance questions; their answers are deterministic. Use fire_season for the
countdown to peak fire season. Use search_documents to cite regulations or
field notes. Use ask_vigil for anything about assets, circuits, risk, work
orders or ML predictions.`
