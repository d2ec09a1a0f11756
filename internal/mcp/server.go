package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sajuwooju/sajuwooju/internal/model"
)

// AdminDirectory is the read side of the admin store used by the tools.
type AdminDirectory interface {
	ListAdmins(ctx context.Context) ([]model.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
}

// Gate evaluates a permission the same way the HTTP gates do.
// *service.AuthService implements it.
type Gate interface {
	Evaluate(ctx context.Context, adminID string, perm model.Permission) (*model.Admin, error)
}

// MCPServer wraps the mcp-go server with read-only operator tools for the
// SajuWooju admin directory and role table. Nothing exposed here mutates
// state; account changes go through the admin API or the CLI.
type MCPServer struct {
	dir     AdminDirectory
	gate    Gate
	baseURL string
	logger  *slog.Logger
	server  *server.MCPServer
}

// NewMCPServer creates an MCPServer with all tools and resources registered.
// baseURL is used as the server URL in the OpenAPI resource.
func NewMCPServer(dir AdminDirectory, gate Gate, baseURL, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		dir:     dir,
		gate:    gate,
		baseURL: baseURL,
		logger:  logger,
	}

	mcpServer := server.NewMCPServer(
		"SajuWooju Admin",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio serves MCP over stdin/stdout for clients that launch the
// binary as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode on addr.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:   boolPtr(true),
		IdempotentHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
