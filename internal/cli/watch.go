package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/agentsync/internal/app"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the sync engine and read API",
	Long: `Connect to the event stream and keep the local cache in sync,
serving it over the read API until interrupted.

SIGUSR1 moves the engine to background (stream disconnected), SIGUSR2
back to foreground (cache invalidated and refetched).`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := app.NewConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return app.Run(cfg)
}
