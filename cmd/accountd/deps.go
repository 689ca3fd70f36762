package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-account/config"
	"github.com/goliatone/go-account/mailer"
	"github.com/goliatone/go-account/queue"
)

func openDB(cfg config.Database) (*bun.DB, error) {
	var db *bun.DB

	switch cfg.Driver {
	case "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite")
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case "postgres":
		sqldb, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, goerrors.New("unsupported database driver", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"driver": cfg.Driver})
	}

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to ping database")
	}

	return db, nil
}

func openRedis(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to ping redis").
			WithMetadata(map[string]any{"addr": cfg.Addr})
	}
	return client, nil
}

func newViews() *django.Engine {
	return django.NewFileSystem(http.FS(account.GetViewsFS()), ".html")
}

func newMailQueue(client *redis.Client, cfg *config.Config, logger account.Logger) *queue.Redis[account.MailJob] {
	return queue.NewRedis[account.MailJob](client, cfg.Mail.Queue, queue.WithLogger(logger))
}

func newSender(cfg config.Mail, logger account.Logger) (mailer.Sender, error) {
	if cfg.Driver == "smtp" {
		sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.Username,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, err
		}
		return sender, nil
	}
	return mailer.NewLogSender(logger), nil
}

func newCodec(repo account.RepositoryManager, cfg *config.Config, logger account.Logger) *account.TokenCodec {
	return account.NewTokenCodec(
		repo.Users(),
		[]byte(cfg.GetSigningKey()),
		cfg.GetConfirmTokenMaxAge(),
		cfg.GetIssuer(),
		account.WithTokenLogger(logger),
	)
}
