package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vigil-grid/vigil"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	databaseURL string
	logger      *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "VIGIL - wildfire risk planning for utility grids",
	Long: `VIGIL serves the risk planning API, dashboard and MCP endpoint over a
Postgres warehouse of grid assets, vegetation encroachments, work orders,
smart meter readings and ML predictions.

Run without a subcommand to start the server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; production sets the environment directly.
		_ = godotenv.Load()
		logger = newLogger(os.Getenv("VIGIL_LOG_LEVEL"))
		slog.SetDefault(logger)
	},
	RunE: runServe,
}

func init() {
	rootCmd.SetVersionTemplate("vigil version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "",
		"Postgres URL (default: DATABASE_URL)")
}

// newLogger builds the JSON logger. Unknown levels fall back to info.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// newApp builds the App with the shared CLI options.
func newApp(extra ...vigil.Option) (*vigil.App, error) {
	opts := []vigil.Option{
		vigil.WithLogger(logger),
		vigil.WithVersion(version),
	}
	if databaseURL != "" {
		opts = append(opts, vigil.WithDatabaseURL(databaseURL))
	}
	return vigil.New(append(opts, extra...)...)
}
