package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/igrejaonline/portal/internal/repository"
)

func SessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, _, err := openDatabase(false)
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := repository.NewSessionRepository(database).DeleteExpired(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired sessions\n", n)
			return nil
		},
	})

	return cmd
}
