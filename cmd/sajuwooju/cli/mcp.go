package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	smcp "github.com/sajuwooju/sajuwooju/internal/mcp"
	"github.com/sajuwooju/sajuwooju/internal/service"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
		baseURL   string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the read-only MCP server for operators",
		Long: `Start a Model Context Protocol (MCP) server exposing read-only operator tools:
the role table, the admin list and a live permission check against the
admin directory. Supports stdio (default) and streamable HTTP transports.

The server never changes accounts; use 'sajuwooju admin' or the admin API.`,
		Example: `  sajuwooju mcp
  sajuwooju mcp --transport http --port 3001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port, baseURL)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Admin API URL reported in the OpenAPI resource")

	return cmd
}

func runMCP(transport string, port int, baseURL string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the protocol in stdio mode.
	logger := newLogger(cfg.Log, os.Stderr)

	store, err := openDirectory(cfg.Directory)
	if err != nil {
		return fmt.Errorf("open admin directory: %w", err)
	}
	defer store.Close()

	// The tools never issue tokens, so an unset secret is replaced with a
	// throwaway one just to build the gate.
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if secret, err = ephemeralSecret(); err != nil {
			return err
		}
	}
	codec, err := service.NewTokenCodec([]byte(secret))
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}
	gate := service.NewAuthService(store, codec,
		service.WithLogger(logger),
		service.WithLookupTimeout(cfg.Directory.LookupTimeout),
	)

	srv := smcp.NewMCPServer(store, gate, baseURL, versionString(), logger)

	switch transport {
	case "stdio":
		return srv.ServeStdio()
	case "http":
		return srv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
