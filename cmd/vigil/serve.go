package main

import (
	"github.com/spf13/cobra"

	"github.com/vigil-grid/vigil"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the VIGIL HTTP server: REST API, chat and SSE streams, the MCP
endpoint at /mcp and, when built with -tags ui, the dashboard at /ui/.
Pending migrations are applied first.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: VIGIL_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	var opts []vigil.Option
	if servePort != 0 {
		opts = append(opts, vigil.WithPort(servePort))
	}
	app, err := newApp(opts...)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	if err := app.Run(ctx); err != nil {
		logger.Error("fatal error", "error", err)
		return err
	}
	return nil
}
