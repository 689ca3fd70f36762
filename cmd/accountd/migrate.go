package main

import (
	"github.com/spf13/cobra"

	account "github.com/goliatone/go-account"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(a.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			return account.Migrate(cmd.Context(), db, a.logger)
		},
	}
}
