package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/agentsync/internal/api"
	"github.com/emiliopalmerini/agentsync/internal/app"
	"github.com/emiliopalmerini/agentsync/internal/domain"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect agent work sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Long: `List sessions from the server.

Examples:
  agentsync sessions list                     # All sessions
  agentsync sessions list --status running    # Only running sessions`,
	RunE: runSessionsList,
}

// Flags
var sessionsStatus string

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)

	sessionsListCmd.Flags().StringVarP(&sessionsStatus, "status", "s", "", "Filter by status (running, awaitingReview, done, error)")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := app.NewConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.APIBaseURL == "" {
		return fmt.Errorf("AGENTSYNC_API_BASE_URL is not set")
	}

	status := domain.SessionStatus(sessionsStatus)
	if status != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q", sessionsStatus)
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.APIToken)
	sessions, err := client.ListSessions(ctx, status)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPROGRESS\tREPO\tTASK")
	fmt.Fprintln(w, "--\t----\t------\t--------\t----\t----")

	for _, s := range sessions {
		id := s.ID
		if len(id) > 12 {
			id = id[:12]
		}

		task := "-"
		if s.CurrentTask != nil {
			task = *s.CurrentTask
		}
		if s.Status == domain.StatusError && s.ErrorMessage != nil {
			task = *s.ErrorMessage
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n", id, s.Name, s.Status, s.Progress, s.Repo, task)
	}

	w.Flush()

	fmt.Printf("\nShowing %d session(s)\n", len(sessions))
	return nil
}
