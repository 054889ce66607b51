package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"kwintel/internal/config"
	"kwintel/internal/db"
)

var databaseURL string

var rootCmd = &cobra.Command{
	Use:           "kwctl",
	Short:         "kwctl: keyword intelligence operator tool",
	Long:          "Manage dictionary versions and classify keywords against the bilingual EN/AR dictionary.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (default: $DATABASE_URL)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(classifyCmd)
}

// connString returns the flag value, falling back to the environment.
func connString() string {
	if databaseURL != "" {
		return databaseURL
	}
	return config.Load().DatabaseURL
}

// openDB connects to the configured database.
func openDB(ctx context.Context) (*db.DB, error) {
	database, err := db.New(ctx, connString())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return database, nil
}
