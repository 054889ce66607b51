package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	database, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.RunMigrations(connString()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}
