package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/tasksync/internal/config"
	"github.com/BuzzLyutic/tasksync/internal/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the Postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := postgresURL()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(url); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back the given number of migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid steps %q: %w", args[0], err)
				}
				steps = n
			}

			url, err := postgresURL()
			if err != nil {
				return err
			}
			if err := database.RollbackMigrations(url, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	})

	return cmd
}

func postgresURL() (string, error) {
	cfg := config.Load()
	if cfg.DatabaseURL == config.MemoryDatabaseURL {
		return "", fmt.Errorf("DATABASE_URL is %s, nothing to migrate", config.MemoryDatabaseURL)
	}
	return cfg.DatabaseURL, nil
}
