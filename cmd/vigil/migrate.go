package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vigil-grid/vigil"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending warehouse migrations",
	Long: `Apply pending SQL migrations to the warehouse. Each file runs in its own
transaction and is recorded in schema_migrations, so re-running is safe.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "List migrations without applying them")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	app, err := newApp(vigil.WithoutMigrations())
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	if !migrateStatus {
		n, err := app.Migrate(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Applied %d migration(s)\n", n)
	}

	status, err := app.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPPLIED")
	for _, m := range status {
		applied := "pending"
		if m.AppliedAt != nil {
			applied = humanize.Time(*m.AppliedAt)
		}
		fmt.Fprintf(w, "%s\t%s\n", m.Version, applied)
	}
	return w.Flush()
}
