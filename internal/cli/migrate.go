package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/agentsync/internal/adapters/turso"
	"github.com/emiliopalmerini/agentsync/internal/app"
	"github.com/emiliopalmerini/agentsync/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run database migrations",
	Long: `Run database migrations against the local Turso database.

Without arguments, runs all pending migrations (up).
With a version number, migrates to that specific version (up or down as needed).

Examples:
  agentsync migrate      # Run all pending migrations
  agentsync migrate 0    # Rollback all migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := app.NewConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.TursoDatabaseURL == "" {
		return fmt.Errorf("AGENTSYNC_TURSO_DATABASE_URL is not set")
	}

	db, err := turso.NewDB(cfg.TursoDatabaseURL, cfg.TursoAuthToken)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if len(args) == 0 {
		return migrate.RunAll(ctx, db)
	}

	targetVersion, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q", args[0])
	}

	if err := migrate.EnsureMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, dirty, err := migrate.GetCurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d", currentVersion)
	}

	allMigrations, err := migrate.LoadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if targetVersion >= currentVersion {
		return migrate.MigrateUp(ctx, db, upTo(allMigrations, targetVersion), currentVersion)
	}
	return migrate.MigrateDownTo(ctx, db, allMigrations, currentVersion, targetVersion)
}

func upTo(all []migrate.Migration, targetVersion int) []migrate.Migration {
	var result []migrate.Migration
	for _, m := range all {
		if m.Version <= targetVersion {
			result = append(result, m)
		}
	}
	return result
}
