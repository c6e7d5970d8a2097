package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/todoagent/internal/resources"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tools/agent_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		httpAddr  string
		yolo      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing the agent to AI
assistants: process emails, manage rules and read statistics.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP on /mcp, together with the scheduler,
    the webhook and the health endpoints

Safety Mode:
  By default, the server operates in read-only mode and only exposes the
  statistics and rule listing tools. Use --yolo to enable processing and
  rule changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, globals)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			readOnly := !yolo
			if readOnly {
				a.logger.Info("starting MCP server in read-only mode (use --yolo to enable write operations)")
			}

			switch transport {
			case transportStdio:
				sc := server.NewServerContext(ctx, a.agent, a.cfg.Google.Account)
				sc.SetLogger(a.logger)
				sc.SetMetrics(a.provider.Metrics())
				defer func() { _ = sc.Shutdown() }()

				mcpSrv, err := newMCPServer(sc, readOnly)
				if err != nil {
					return err
				}
				return runStdioServer(mcpSrv)
			case transportStreamableHTTP:
				if httpAddr != "" {
					a.cfg.Webhook.Addr = httpAddr
				}
				return runSchedule(ctx, a, func(sc *server.ServerContext) (http.Handler, error) {
					mcpSrv, err := newMCPServer(sc, readOnly)
					if err != nil {
						return nil, err
					}
					return mcpserver.NewStreamableHTTPServer(mcpSrv), nil
				})
			default:
				return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", transport, transportStdio, transportStreamableHTTP)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP server address for streamable-http (default: webhook.addr)")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write operations (processing emails, changing rules). Default is read-only mode.")
	return cmd
}

// newMCPServer creates the MCP server with the agent tools and resources
// registered.
func newMCPServer(sc *server.ServerContext, readOnly bool) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("todoagent", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
	if err := agent_tools.RegisterAgentTools(mcpSrv, sc, readOnly); err != nil {
		return nil, fmt.Errorf("failed to register agent tools: %w", err)
	}
	if err := resources.RegisterAgentResources(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register agent resources: %w", err)
	}
	return mcpSrv, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}
