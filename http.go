package account

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
)

// RegisterAccountRoutes mounts the account pages on the router. The fiber
// app must run RequestScope before the router handlers.
func RegisterAccountRoutes[T any](app router.Router[T], controller *AccountController) {
	app.Use(mflash.New(mflash.ConfigDefault))
	app.Use(controller.Locale())
	app.Use(controller.LoadUser())

	app.Get(controller.Routes.Home, controller.Home).SetName("home")

	app.Get(controller.Routes.Signup, controller.SignupShow).SetName("signup.get")
	app.Post(controller.Routes.Signup, controller.SignupPost).SetName("signup.post")

	app.Get(controller.Routes.Confirm+"/:token", controller.ConfirmEmail).SetName("confirm.get")

	app.Get(controller.Routes.Login, controller.LoginShow).SetName("login.get")
	app.Post(controller.Routes.Login, controller.LoginPost).SetName("login.post")
	app.Get(controller.Routes.Logout, controller.Logout).SetName("logout.get")

	app.Get(controller.Routes.Profile, controller.ProfileShow, controller.LoginRequired()).SetName("profile.get")
	app.Post(controller.Routes.Profile, controller.ProfilePost, controller.LoginRequired()).SetName("profile.post")

	app.Get(controller.Routes.AdminLogin, controller.AdminLogin).SetName("admin.login")
	app.Get(controller.Routes.Admin, controller.AdminIndex, controller.StaffRequired()).SetName("admin.index")
	app.Get(controller.Routes.AdminUserAdd, controller.AdminUserAddShow, controller.StaffRequired()).SetName("admin.user_add.get")
	app.Post(controller.Routes.AdminUserAdd, controller.AdminUserAddPost, controller.StaffRequired()).SetName("admin.user_add.post")
}

// RequestScope runs on the fiber app ahead of the router. It loads the
// session and the request origin into locals for the router handlers.
func (a *AccountController) RequestScope() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := a.Sessions.Get(c)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session")
		}

		c.Locals(localsSession, sess)
		c.Locals(localsOrigin, requestOrigin{
			Scheme: c.Protocol(),
			Host:   c.Hostname(),
		})
		return c.Next()
	}
}

// Locale negotiates the response language from Accept-Language
func (a *AccountController) Locale() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			tag := a.Translator.Match(c.Header(fiber.HeaderAcceptLanguage))
			c.Locals(localsLocale, tag)
			c.Locals(localsPrinter, a.Translator.Printer(tag))
			return next(c)
		}
	}
}

// LoadUser resolves the session user and stores it in the user context.
// Sessions pointing at missing or inactive users are treated as anonymous.
func (a *AccountController) LoadUser() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			id, ok := a.sessionUserID(c)
			if !ok {
				return next(c)
			}

			user, err := a.Backend.GetUser(c.Context(), id)
			if err != nil {
				if !goerrors.IsNotFound(err) && !errors.Is(err, ErrInactiveAccount) {
					a.Logger.Error("failed to load session user", "user", id, "error", err)
				}
				return next(c)
			}

			c.Locals(localsUser, user)
			c.SetContext(WithContext(c.Context(), user))
			return next(c)
		}
	}
}

// LoginRequired sends anonymous visitors to the login page and
// remembers where they were going
func (a *AccountController) LoginRequired() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if _, ok := CurrentUser(c); ok {
				return next(c)
			}

			a.Logger.Info("login required, redirecting", "path", c.OriginalURL())

			if err := a.setReferer(c, c.OriginalURL()); err != nil {
				return a.ErrorHandler(c, err)
			}

			return c.Redirect(a.Routes.Login, fiber.StatusFound)
		}
	}
}

// StaffRequired guards the admin pages
func (a *AccountController) StaffRequired() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return c.Redirect(a.Routes.AdminLogin, fiber.StatusFound)
			}

			if !user.CanAccessAdmin() {
				AddMessage(c, LevelError, Printer(c).Sprintf(MsgPermissionDenied))
				return a.renderStatus(c, fiber.StatusForbidden, a.Views.Forbidden, router.ViewContext{})
			}

			return next(c)
		}
	}
}
