package mcp

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sajuwooju/sajuwooju/internal/openapi"
)

const (
	rolesURI   = "sajuwooju://roles"
	openAPIURI = "sajuwooju://openapi"
)

func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			rolesURI,
			"Admin Role Table",
			mcp.WithResourceDescription("Roles and the permissions each one grants."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleRolesResource,
	)

	srv.AddResource(
		mcp.NewResource(
			openAPIURI,
			"Admin API OpenAPI Document",
			mcp.WithResourceDescription("OpenAPI 3.1 description of the admin HTTP API, including the permission each operation requires."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleOpenAPIResource,
	)
}

func (s *MCPServer) handleRolesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(rolesURI, roleTable())
}

func (s *MCPServer) handleOpenAPIResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(openAPIURI, openapi.Generate(s.baseURL))
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
