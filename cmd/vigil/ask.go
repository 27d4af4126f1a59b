package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vigil-grid/vigil"
)

var (
	askPersona string
	askSession string
)

var askCmd = &cobra.Command{
	Use:   `ask "<question>"`,
	Short: "Ask the copilot a question",
	Long: `Send one question through the copilot orchestrator and print the
markdown answer. Routing matches POST /chat: fire risk, vegetation, asset
health, hidden discovery and free-form data questions.`,
	Example: `  vigil ask "Which Tier 3 assets need trimming before fire season?"
  vigil ask --persona executive_advisor "Give me the risk summary"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askPersona, "persona", "", "Persona: safety_guardian, field_partner, executive_advisor or data_detective")
	askCmd.Flags().StringVar(&askSession, "session", "", "Session id to continue a conversation")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	app, err := newApp(vigil.WithoutMigrations())
	if err != nil {
		return err
	}
	defer app.Close()

	ans := app.Ask(ctx, strings.Join(args, " "), askPersona, askSession)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ans.Narrative)
	fmt.Fprintf(out, "\n-- %s (%s), session %s\n", ans.Agent, ans.Intent, ans.SessionID)
	return nil
}
