package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/fiber/v2/utils"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	sessionUserKey    = "user_id"
	sessionRefererKey = "referer"
)

type AccountControllerRoutes struct {
	Home         string
	Signup       string
	Confirm      string
	Login        string
	Logout       string
	Profile      string
	AdminLogin   string
	Admin        string
	AdminUserAdd string
}

type AccountControllerViews struct {
	Home                 string
	Signup               string
	SignupDone           string
	Login                string
	Profile              string
	EmailVerifyDone      string
	EmailVerifyEndOfTime string
	UserDoesNotExist     string
	AdminIndex           string
	AdminUserAdd         string
	Forbidden            string
	Error                string
}

type AccountController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Backend      AuthBackend
	Codec        *TokenCodec
	Mail         MailDispatcher
	Activity     ActivitySink
	Sessions     *session.Store
	Translator   *Translator
	Routes       *AccountControllerRoutes
	Views        *AccountControllerViews
	ErrorHandler router.ErrorHandler

	registerUser *RegisterUserHandler
	confirmEmail *ConfirmEmailHandler
}

// requestOrigin is where the request was addressed, links in mail use it
type requestOrigin struct {
	Scheme string
	Host   string
}

type AccountControllerOption func(*AccountController) *AccountController

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger: defaultLogger(),
		Routes: &AccountControllerRoutes{
			Home:         "/",
			Signup:       "/signup",
			Confirm:      "/confirm",
			Login:        "/login",
			Logout:       "/logout",
			Profile:      "/profile",
			AdminLogin:   "/admin/login/",
			Admin:        "/admin/",
			AdminUserAdd: "/admin/users/add",
		},
		Views: &AccountControllerViews{
			Home:                 "home",
			Signup:               "registration/signup",
			SignupDone:           "registration/signup_done",
			Login:                "registration/login",
			Profile:              "profile",
			EmailVerifyDone:      "email_verify_done",
			EmailVerifyEndOfTime: "email_verify_end_of_time",
			UserDoesNotExist:     "user_does_not_exist",
			AdminIndex:           "admin/index",
			AdminUserAdd:         "admin/user_add",
			Forbidden:            "errors/403",
			Error:                "errors/500",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Backend == nil {
		panic("Missing AuthBackend in account controller...")
	}

	if c.Codec == nil {
		panic("Missing TokenCodec in account controller...")
	}

	if c.Mail == nil {
		panic("Missing MailDispatcher in account controller...")
	}

	if c.Sessions == nil {
		c.Sessions = session.New()
	}

	if c.Translator == nil {
		c.Translator = NewTranslator(DefaultLocale)
	}

	c.Activity = normalizeActivitySink(c.Activity)

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.defaultErrHandler
	}

	c.registerUser = NewRegisterUserHandler(c.Repo, c.Mail, c.Logger)
	c.confirmEmail = NewConfirmEmailHandler(c.Repo, c.Codec, c.Mail, c.Logger)

	return c
}

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

func WithRepositoryManager(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

func WithAuthBackend(backend AuthBackend) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Backend = backend
		return c
	}
}

func WithTokenCodec(codec *TokenCodec) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Codec = codec
		return c
	}
}

func WithMailDispatcher(mail MailDispatcher) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Mail = mail
		return c
	}
}

func WithActivitySink(sink ActivitySink) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Activity = sink
		return c
	}
}

func WithSessionStore(store *session.Store) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Sessions = store
		return c
	}
}

func WithTranslator(t *Translator) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Translator = t
		return c
	}
}

func WithErrorHandler(h router.ErrorHandler) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.ErrorHandler = h
		return c
	}
}

func (a *AccountController) Home(c router.Context) error {
	return a.render(c, a.Views.Home, router.ViewContext{})
}

func (a *AccountController) SignupShow(c router.Context) error {
	return a.render(c, a.Views.Signup, router.ViewContext{
		"user_form": &SignupForm{},
	})
}

func (a *AccountController) SignupPost(c router.Context) error {
	form := new(SignupForm)

	if err := c.Bind(form); err != nil {
		a.Logger.Error("signup parse payload", "error", err)
		form.Errors = FormErrors{NonFieldErrors: err.Error()}
		return a.renderStatus(c, fiber.StatusBadRequest, a.Views.Signup, router.ViewContext{
			"user_form": form,
		})
	}

	ctx := c.Context()

	if err := form.Validate(ctx, a.Repo.Users(), Printer(c)); err != nil {
		if IsValidationError(err) {
			return a.render(c, a.Views.Signup, router.ViewContext{
				"user_form": form,
			})
		}
		return a.ErrorHandler(c, err)
	}

	origin := a.origin(c)

	var user *User
	msg := form.RegisterMessage()
	msg.Locale = LocaleName(Locale(c))
	msg.Scheme = origin.Scheme
	msg.Host = origin.Host
	msg.OnResponse = func(u *User) {
		user = u
	}

	if err := a.registerUser.Execute(ctx, msg); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			form.Errors = FormErrors{"email": Printer(c).Sprintf(MsgEmailTaken)}
			return a.render(c, a.Views.Signup, router.ViewContext{
				"user_form": form,
			})
		}
		return a.ErrorHandler(c, err)
	}

	a.recordActivity(c, ActivityEventSignup, user.ID, nil)

	return a.render(c, a.Views.SignupDone, router.ViewContext{
		"new_user": user,
	})
}

func (a *AccountController) ConfirmEmail(c router.Context) error {
	origin := a.origin(c)

	var resp *ConfirmEmailResponse
	msg := ConfirmEmailMessage{
		Token:  c.Param("token"),
		Locale: LocaleName(Locale(c)),
		Scheme: origin.Scheme,
		Host:   origin.Host,
		OnResponse: func(r *ConfirmEmailResponse) {
			resp = r
		},
	}

	if err := a.confirmEmail.Execute(c.Context(), msg); err != nil {
		return a.ErrorHandler(c, err)
	}

	switch {
	case resp.Confirmed:
		a.recordActivity(c, ActivityEventEmailConfirmed, resp.User.ID, nil)
		return a.render(c, a.Views.EmailVerifyDone, router.ViewContext{
			"user": resp.User,
		})
	case resp.Expired:
		a.recordActivity(c, ActivityEventConfirmResent, resp.User.ID, nil)
		return a.render(c, a.Views.EmailVerifyEndOfTime, router.ViewContext{})
	default:
		return a.render(c, a.Views.UserDoesNotExist, router.ViewContext{})
	}
}

func (a *AccountController) LoginShow(c router.Context) error {
	if _, ok := CurrentUser(c); ok {
		return c.Redirect(a.Routes.Home, fiber.StatusFound)
	}

	return a.render(c, a.Views.Login, router.ViewContext{
		"form": &LoginForm{},
	})
}

func (a *AccountController) LoginPost(c router.Context) error {
	form := new(LoginForm)

	if err := c.Bind(form); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		form.Errors = FormErrors{NonFieldErrors: err.Error()}
		return a.renderStatus(c, fiber.StatusBadRequest, a.Views.Login, router.ViewContext{
			"form": form,
		})
	}

	user, err := form.Authenticate(c.Context(), a.Backend, Printer(c))
	if err != nil {
		if IsValidationError(err) {
			form.Password = ""
			if form.Errors.Has(NonFieldErrors) {
				a.recordActivity(c, ActivityEventLoginFailure, uuid.Nil, map[string]any{
					"email":  form.Email,
					"reason": form.Errors[NonFieldErrors],
				})
			}
			return a.render(c, a.Views.Login, router.ViewContext{
				"form": form,
			})
		}
		return a.ErrorHandler(c, err)
	}

	sess, err := a.session(c)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	next, _ := sess.Get(sessionRefererKey).(string)
	if !isLocalPath(next) {
		next = a.Routes.Home
	}

	if err := sess.Regenerate(); err != nil {
		return a.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to regenerate session"))
	}

	sess.Delete(sessionRefererKey)
	sess.Set(sessionUserKey, user.ID.String())

	if err := sess.Save(); err != nil {
		return a.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save session"))
	}

	a.Logger.Info("user logged in", "user", user.ID, "backend", a.Backend.Name())
	a.recordActivity(c, ActivityEventLoginSuccess, user.ID, map[string]any{
		"backend": a.Backend.Name(),
	})

	if next == a.Routes.AdminLogin && user.IsStaff {
		next = a.Routes.Admin
	}

	return c.Redirect(next, fiber.StatusFound)
}

func (a *AccountController) Logout(c router.Context) error {
	sess, err := a.session(c)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	if err := sess.Destroy(); err != nil {
		return a.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to destroy session"))
	}

	if user, ok := CurrentUser(c); ok {
		a.recordActivity(c, ActivityEventLogout, user.ID, nil)
	}

	return c.Redirect(a.Routes.Home, fiber.StatusFound)
}

func (a *AccountController) ProfileShow(c router.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return a.ErrorHandler(c, ErrUnableToFindSession)
	}

	return a.render(c, a.Views.Profile, router.ViewContext{
		"user_form":    NewUserForm(user),
		"profile_form": NewProfileForm(user.Profile),
	})
}

// ProfilePost validates both forms and saves the user and profile
// together or not at all.
func (a *AccountController) ProfilePost(c router.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return a.ErrorHandler(c, ErrUnableToFindSession)
	}

	userForm := new(UserForm)
	profileForm := new(ProfileForm)

	for _, form := range []any{userForm, profileForm} {
		if err := c.Bind(form); err != nil {
			a.Logger.Error("profile parse payload", "error", err)
			return a.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse profile form").
				WithTextCode(TextCodeFormParseFailure).
				WithCode(goerrors.CodeBadRequest))
		}
	}

	p := Printer(c)
	userErr := userForm.Validate(p)
	profileErr := profileForm.Validate(p)

	for _, err := range []error{userErr, profileErr} {
		if err != nil && !IsValidationError(err) {
			return a.ErrorHandler(c, err)
		}
	}

	if userErr != nil || profileErr != nil {
		AddMessage(c, LevelError, p.Sprintf(MsgProfileError))
		return a.render(c, a.Views.Profile, router.ViewContext{
			"user_form":    userForm,
			"profile_form": profileForm,
		})
	}

	err := a.Repo.RunInTx(c.Context(), nil, func(ctx context.Context, tx bun.Tx) error {
		profile := user.Profile
		if profile == nil {
			var err error
			if profile, err = a.Repo.Profiles().EnsureTx(ctx, tx, user.ID); err != nil {
				return err
			}
		}

		userForm.Apply(user)
		profileForm.Apply(profile)
		user.Profile = profile

		_, err := a.Repo.Users().SaveTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	a.recordActivity(c, ActivityEventProfileUpdated, user.ID, nil)

	return Flash(c, LevelSuccess, p.Sprintf(MsgProfileUpdated)).
		Redirect(a.Routes.Profile, fiber.StatusSeeOther)
}

// AdminLogin remembers that the visitor came for the admin pages and
// sends them to the regular login form
func (a *AccountController) AdminLogin(c router.Context) error {
	if user, ok := CurrentUser(c); ok && user.CanAccessAdmin() {
		return c.Redirect(a.Routes.Admin, fiber.StatusFound)
	}

	if err := a.setReferer(c, a.Routes.AdminLogin); err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.Redirect(a.Routes.Login, fiber.StatusFound)
}

func (a *AccountController) AdminIndex(c router.Context) error {
	users, err := a.Repo.Users().List(c.Context())
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return a.render(c, a.Views.AdminIndex, router.ViewContext{
		"users": users,
	})
}

func (a *AccountController) AdminUserAddShow(c router.Context) error {
	return a.render(c, a.Views.AdminUserAdd, router.ViewContext{
		"form": &AddUserForm{},
	})
}

func (a *AccountController) AdminUserAddPost(c router.Context) error {
	form := new(AddUserForm)

	if err := c.Bind(form); err != nil {
		a.Logger.Error("add user parse payload", "error", err)
		form.Errors = FormErrors{NonFieldErrors: err.Error()}
		return a.renderStatus(c, fiber.StatusBadRequest, a.Views.AdminUserAdd, router.ViewContext{
			"form": form,
		})
	}

	ctx := c.Context()
	p := Printer(c)

	if err := form.Validate(ctx, a.Repo.Users(), p); err != nil {
		if IsValidationError(err) {
			return a.render(c, a.Views.AdminUserAdd, router.ViewContext{
				"form": form,
			})
		}
		return a.ErrorHandler(c, err)
	}

	// only superusers hand out superuser status
	if current, ok := CurrentUser(c); ok && !current.IsSuperuser {
		form.IsSuperuser = false
	}

	var user *User
	msg := form.RegisterMessage()
	msg.OnResponse = func(u *User) {
		user = u
	}

	if err := a.registerUser.Execute(ctx, msg); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			form.Errors = FormErrors{"email": p.Sprintf(MsgEmailTaken)}
			return a.render(c, a.Views.AdminUserAdd, router.ViewContext{
				"form": form,
			})
		}
		return a.ErrorHandler(c, err)
	}

	a.recordActivity(c, ActivityEventUserAdded, user.ID, map[string]any{
		"is_staff":     user.IsStaff,
		"is_superuser": user.IsSuperuser,
	})

	return Flash(c, LevelSuccess, p.Sprintf(MsgUserCreated, user.Email)).
		Redirect(a.Routes.Admin, fiber.StatusSeeOther)
}

// recordActivity reports an event to the activity sink. The current user,
// when there is one, is the actor.
func (a *AccountController) recordActivity(c router.Context, kind ActivityEventType, userID uuid.UUID, meta map[string]any) {
	event := ActivityEvent{
		EventType:  kind,
		ActorID:    userID,
		UserID:     userID,
		Metadata:   meta,
		OccurredAt: time.Now().UTC(),
	}

	if actor, ok := CurrentUser(c); ok {
		event.ActorID = actor.ID
	}

	if err := a.Activity.Record(c.Context(), event); err != nil {
		a.Logger.Error("failed to record activity", "event", string(kind), "error", err)
	}
}

// session returns the session RequestScope loaded for this request
func (a *AccountController) session(c router.Context) (*session.Session, error) {
	sess, ok := c.Locals(localsSession).(*session.Session)
	if !ok || sess == nil {
		return nil, goerrors.New("session not loaded for request", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"path": c.OriginalURL()})
	}
	return sess, nil
}

func (a *AccountController) origin(c router.Context) requestOrigin {
	if o, ok := c.Locals(localsOrigin).(requestOrigin); ok {
		return o
	}
	return requestOrigin{Scheme: "http", Host: c.Header(fiber.HeaderHost)}
}

func (a *AccountController) setReferer(c router.Context, path string) error {
	sess, err := a.session(c)
	if err != nil {
		return err
	}
	sess.Set(sessionRefererKey, path)
	if err := sess.Save(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save session")
	}
	return nil
}

func (a *AccountController) sessionUserID(c router.Context) (uuid.UUID, bool) {
	sess, err := a.session(c)
	if err != nil {
		return uuid.Nil, false
	}

	raw, _ := sess.Get(sessionUserKey).(string)
	if raw == "" {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (a *AccountController) render(c router.Context, view string, data router.ViewContext) error {
	return a.renderStatus(c, fiber.StatusOK, view, data)
}

func (a *AccountController) renderStatus(c router.Context, status int, view string, data router.ViewContext) error {
	helpers := TemplateHelpers()
	if user, ok := CurrentUser(c); ok {
		helpers = TemplateHelpersWithUser(user)
	}

	ctx := router.ViewContext(mergeTemplateData(helpers, router.ViewContext{
		"messages": Messages(c),
		"locale":   LocaleName(Locale(c)),
		"routes":   a.Routes,
		"csrf":     c.Locals("csrf"),
	}))

	for k, v := range data {
		ctx[k] = v
	}

	return c.Status(status).Render(view, ctx)
}

// defaultErrHandler renders the error page with a status picked from
// the error category
func (a *AccountController) defaultErrHandler(c router.Context, err error) error {
	richErr := RichError(err)
	code := StatusFromError(err)

	a.Logger.Error("request failed",
		"error", err,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
		"status", code,
	)

	message := Printer(c).Sprintf(MsgInternalError)
	if code < fiber.StatusInternalServerError {
		message = richErr.Message
	}

	data := router.ViewContext{
		"message":   message,
		"status":    code,
		"text_code": richErr.TextCode,
	}

	if a.Debug {
		data["error"] = err.Error()
		a.Logger.Debug("request failed details", "details", print.MaybePrettyJSON(router.ViewContext{
			"method":   c.Method(),
			"path":     c.OriginalURL(),
			"error":    err.Error(),
			"metadata": richErr.Metadata,
		}))
	}

	return a.renderStatus(c, code, a.Views.Error, data)
}

// FiberErrorHandler renders errors that never reached a router handler,
// unknown routes or a failing RequestScope
func (a *AccountController) FiberErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusFromError(err)

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code = ferr.Code
	}

	if code >= fiber.StatusInternalServerError {
		a.Logger.Error("request failed", "error", err, "path", c.OriginalURL(), "status", code)
	}

	return c.Status(code).Render(a.Views.Error, fiber.Map(mergeTemplateData(TemplateHelpers(), fiber.Map{
		"status":  code,
		"message": utils.StatusMessage(code),
		"routes":  a.Routes,
	})))
}

// isLocalPath rejects absolute and scheme relative URLs
func isLocalPath(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") {
		return false
	}
	return !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
