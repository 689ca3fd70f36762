package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/spf13/cobra"

	account "github.com/goliatone/go-account"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	if a.cfg.HTTP.Debug {
		a.logger.Debug("configuration", "config", print.MaybePrettyJSON(a.cfg))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(a.cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := account.Migrate(ctx, db, a.logger); err != nil {
		return err
	}

	rdb, err := openRedis(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	repo := account.NewRepositoryManager(db)
	repo.MustValidate()

	translator := account.NewTranslator(a.cfg.GetDefaultLocale())

	controller := account.NewAccountController(
		account.WithControllerLogger(a.logger),
		account.WithControllerDebug(a.cfg.HTTP.Debug),
		account.WithRepositoryManager(repo),
		account.WithAuthBackend(account.NewModelBackend(repo.Users()).WithLogger(a.logger)),
		account.WithTokenCodec(newCodec(repo, a.cfg, a.logger)),
		account.WithMailDispatcher(newMailQueue(rdb, a.cfg, a.logger)),
		account.WithActivitySink(account.LogActivitySink{Logger: a.logger}),
		account.WithTranslator(translator),
		account.WithSessionStore(session.New(session.Config{
			Expiration:     a.cfg.GetSessionExpiration(),
			KeyLookup:      "cookie:account_session",
			CookieHTTPOnly: true,
			CookieSameSite: "Lax",
		})),
	)

	var httpApp *fiber.App
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		httpApp = fiber.New(fiber.Config{
			Views:                 newViews(),
			DisableStartupMessage: true,
			ErrorHandler:          controller.FiberErrorHandler,
		})

		httpApp.Use(recover.New())
		httpApp.Use(logger.New())
		httpApp.Use(csrf.New(csrf.Config{
			KeyLookup:      "form:csrf_token",
			CookieName:     "csrf_",
			CookieSameSite: "Lax",
			CookieHTTPOnly: true,
			Expiration:     time.Hour,
			ContextKey:     "csrf",
		}))
		httpApp.Use(controller.RequestScope())

		return httpApp
	})

	account.RegisterAccountRoutes(srv.Router(), controller)

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.cfg.HTTP.Addr)
		errc <- srv.Serve(a.cfg.HTTP.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	return httpApp.ShutdownWithTimeout(10 * time.Second)
}
