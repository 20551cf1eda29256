package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/igrejaonline/portal/internal/db"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, cfg, err := openDatabase(false)
			if err != nil {
				return err
			}
			defer database.Close()

			err = db.RunMigrations(database.DB, cfg.DBDriver)
			if err != nil {
				return err
			}
			return printVersion(cmd, database.DB, cfg.DBDriver)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the newest migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, cfg, err := openDatabase(false)
			if err != nil {
				return err
			}
			defer database.Close()

			err = db.MigrateDown(database.DB, cfg.DBDriver)
			if err != nil {
				return err
			}
			return printVersion(cmd, database.DB, cfg.DBDriver)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, cfg, err := openDatabase(false)
			if err != nil {
				return err
			}
			defer database.Close()

			return printVersion(cmd, database.DB, cfg.DBDriver)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, database *sql.DB, driver string) error {
	version, err := db.MigrationVersion(database, driver)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migration version: %d\n", version)
	return nil
}
