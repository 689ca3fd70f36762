package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	account "github.com/goliatone/go-account"
)

func newWorkerCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume the mail queue and send confirmation emails",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.worker(cmd.Context())
		},
	}
}

func (a *app) worker(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(a.cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := openRedis(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	repo := account.NewRepositoryManager(db)

	views := newViews()
	if err := views.Load(); err != nil {
		return err
	}

	sender, err := newSender(a.cfg.Mail, a.logger)
	if err != nil {
		return err
	}

	worker := account.NewMailWorker(
		account.WithWorkerUsers(repo.Users()),
		account.WithWorkerCodec(newCodec(repo, a.cfg, a.logger)),
		account.WithWorkerTranslator(account.NewTranslator(a.cfg.GetDefaultLocale())),
		account.WithWorkerViews(views),
		account.WithWorkerSender(sender),
		account.WithWorkerFrom(a.cfg.Mail.From),
		account.WithWorkerLogger(a.logger),
	)

	q := newMailQueue(rdb, a.cfg, a.logger)
	a.logger.Info("worker started", "queue", q.Key())

	err = q.Consume(ctx, worker.Handle)
	if errors.Is(err, context.Canceled) {
		a.logger.Info("worker stopped")
		return nil
	}
	return err
}
