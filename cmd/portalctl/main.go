package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/igrejaonline/portal/cmd/portalctl/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Maintenance tools for the church portal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.SeedCmd())
	rootCmd.AddCommand(cmd.ImportCmd())
	rootCmd.AddCommand(cmd.SessionsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
