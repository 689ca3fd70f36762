package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ConfirmEmailMessage carries a token from a confirmation link. Locale,
// Scheme and Host are used when an expired link has to be resent.
type ConfirmEmailMessage struct {
	Token  string `json:"token"`
	Locale string `json:"locale"`
	Scheme string `json:"scheme"`
	Host   string `json:"host"`

	OnResponse func(resp *ConfirmEmailResponse) `json:"-"`
}

func (e ConfirmEmailMessage) Type() string { return "account.email.confirm" }

// ConfirmEmailResponse reports what happened to the token
type ConfirmEmailResponse struct {
	User      *User `json:"-"`
	Found     bool  `json:"found"`
	Expired   bool  `json:"expired"`
	Confirmed bool  `json:"confirmed"`
}

type ConfirmEmailHandler struct {
	repo   RepositoryManager
	codec  *TokenCodec
	mail   MailDispatcher
	logger Logger
}

func NewConfirmEmailHandler(repo RepositoryManager, codec *TokenCodec, mail MailDispatcher, logger Logger) *ConfirmEmailHandler {
	if logger == nil {
		logger = defaultLogger()
	}
	return &ConfirmEmailHandler{
		repo:   repo,
		codec:  codec,
		mail:   mail,
		logger: logger,
	}
}

func (h *ConfirmEmailHandler) Execute(ctx context.Context, event ConfirmEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email confirmation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmEmailHandler) execute(ctx context.Context, event ConfirmEmailMessage) error {
	resp := &ConfirmEmailResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, fresh := h.codec.Decode(ctx, event.Token)
	switch {
	case user == nil:
		// unknown or forged tokens are part of the expected flow
	case fresh:
		resp.User = user
		resp.Found = true

		user.EmailConfirm = true
		if _, err := h.repo.Users().Save(ctx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm email").
				WithMetadata(map[string]any{"user_id": user.ID.String()})
		}
		resp.Confirmed = true
	default:
		resp.User = user
		resp.Found = true
		resp.Expired = true

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

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
