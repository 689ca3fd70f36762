package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-account/config"
)

type app struct {
	configPath string
	cfg        *config.Config
	logger     account.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "accountd",
		Short:         "Account service: signup, login, email confirmation and profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			level := slog.LevelInfo
			if cfg.HTTP.Debug {
				level = slog.LevelDebug
			}
			a.logger = account.NewLogger("accountd", level)

			if cfg.Auth.PasswordHashCost > 0 {
				account.PasswordHashCost = cfg.Auth.PasswordHashCost
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a yaml, json or toml config file")

	root.AddCommand(
		newServeCommand(a),
		newWorkerCommand(a),
		newMigrateCommand(a),
		newCreateUserCommand(a),
	)

	return root
}
