package account

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RegisterUserMessage asks for a new account. Confirmation mail is sent
// after the user is committed when SendConfirmation is set.
type RegisterUserMessage struct {
	Email            string `json:"email"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Password         string `json:"-"`
	IsStaff          bool   `json:"is_staff"`
	IsSuperuser      bool   `json:"is_superuser"`
	EmailConfirm     bool   `json:"email_confirm"`
	SendConfirmation bool   `json:"send_confirmation"`
	Locale           string `json:"locale"`
	Scheme           string `json:"scheme"`
	Host             string `json:"host"`

	OnResponse func(user *User) `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "account.user.register" }

// NewUser builds the unsaved user described by the message
func (e RegisterUserMessage) NewUser() (*User, error) {
	u := NewUser(e.Email, e.FirstName, e.LastName)
	if err := u.SetPassword(e.Password); err != nil {
		return nil, err
	}
	u.IsStaff = e.IsStaff || e.IsSuperuser
	u.IsSuperuser = e.IsSuperuser
	u.EmailConfirm = e.EmailConfirm
	return u, nil
}

type RegisterUserHandler struct {
	repo   RepositoryManager
	mail   MailDispatcher
	logger Logger
}

// NewRegisterUserHandler returns a handler. mail may be nil when no
// confirmation is ever requested.
func NewRegisterUserHandler(repo RepositoryManager, mail MailDispatcher, logger Logger) *RegisterUserHandler {
	if logger == nil {
		logger = defaultLogger()
	}
	return &RegisterUserHandler{
		repo:   repo,
		mail:   mail,
		logger: logger,
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := event.NewUser()
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			if errors.Is(err, ErrEmailTaken) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.logger.Info("user registered", "user", user.ID, "is_staff", user.IsStaff)

	if event.SendConfirmation {
		h.dispatchConfirmation(ctx, event, user)
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

// dispatchConfirmation only logs failures, the account already exists
func (h *RegisterUserHandler) dispatchConfirmation(ctx context.Context, event RegisterUserMessage, user *User) {
	if h.mail == nil {
		h.logger.Error("confirmation requested without a mail dispatcher", "user", user.ID)
		return
	}

	job := MailJob{
		Locale: event.Locale,
		Scheme: event.Scheme,
		Host:   event.Host,
		UserID: user.ID,
	}

	if err := h.mail.Dispatch(ctx, job); err != nil {
		h.logger.Error("failed to dispatch confirmation email", "user", user.ID, "error", err)
	}
}
