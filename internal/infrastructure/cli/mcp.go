package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/mcp"
)

var (
	mcpTransport string
	mcpAddr      string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the plan to MCP clients",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		mcp.Version = Version
		mcp.BuildCommit = Commit
		mcp.BuildDate = Date
		server := mcp.NewServer(services)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		switch mcpTransport {
		case "stdio":
			return server.ServeStdio(ctx)
		case "http":
			services.Workspace.Logger.Info("serving MCP over HTTP", "addr", mcpAddr)
			return server.ServeHTTP(ctx, mcpAddr)
		case "websocket":
			services.Workspace.Logger.Info("serving MCP over WebSocket", "addr", mcpAddr)
			return server.ServeWebSocket(ctx, mcpAddr)
		case "grpc":
			services.Workspace.Logger.Info("serving MCP over gRPC", "addr", mcpAddr)
			return server.ServeGRPC(ctx, mcpAddr)
		default:
			return fmt.Errorf("unknown transport %q (want stdio, http, websocket or grpc)", mcpTransport)
		}
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport (stdio, http, websocket or grpc)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", "127.0.0.1:8090", "Listen address for network transports")
	RootCmd.AddCommand(mcpCmd)
}
