package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentsync",
	Short: "Realtime session-state sync for agent work sessions",
	Long: `agentsync keeps a local mirror of agent work sessions and repository
notifications in sync with the server: a push event stream reconciled
into a local cache, exposed over a small read API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
