package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/agentsync/internal/api"
	"github.com/emiliopalmerini/agentsync/internal/app"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Inspect repository notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications",
	Long: `List repository notifications from the server.

Examples:
  agentsync notifications list            # All notifications
  agentsync notifications list --unread   # Only unread`,
	RunE: runNotificationsList,
}

// Flags
var notificationsUnread bool

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsListCmd)

	notificationsListCmd.Flags().BoolVarP(&notificationsUnread, "unread", "u", false, "Show only unread notifications")
}

func runNotificationsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := app.NewConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.APIBaseURL == "" {
		return fmt.Errorf("AGENTSYNC_API_BASE_URL is not set")
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.APIToken)
	notifications, err := client.ListNotifications(ctx, notificationsUnread)
	if err != nil {
		return fmt.Errorf("failed to list notifications: %w", err)
	}

	if len(notifications) == 0 {
		fmt.Println("No notifications found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tREPO\tITEM\tUNREAD\tWHEN")
	fmt.Fprintln(w, "--\t----\t----\t----\t------\t----")

	for _, n := range notifications {
		id := n.ID
		if len(id) > 12 {
			id = id[:12]
		}

		unread := ""
		if n.Unread {
			unread = "*"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", id, n.Type, n.Repo, n.ItemRef, unread, n.Timestamp.Format("2006-01-02 15:04"))
	}

	w.Flush()

	fmt.Printf("\nShowing %d notification(s)\n", len(notifications))
	return nil
}
