package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"climate-server/internal/db"
	"climate-server/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the climate schema",
	Long:  `Applies every pending schema migration. Existing tables are left in place, so an existing hawaii.sqlite can be migrated safely.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conn, err := openDB(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	applied, err := migrate.Run(ctx, conn)
	if err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
	return nil
}
