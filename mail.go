package account

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-account/mailer"
)

// MailQueue is the queue name confirmation jobs are pushed to
const MailQueue = "mail_send"

// ConfirmEmailTemplate renders the confirmation email body
const ConfirmEmailTemplate = "emails/confirm_email"

// MailJob asks the worker to send a confirmation email to a user.
// Scheme and Host are taken from the request that triggered it.
type MailJob struct {
	Locale string    `json:"locale"`
	Scheme string    `json:"scheme"`
	Host   string    `json:"host"`
	UserID uuid.UUID `json:"user_id"`
}

// Renderer renders a named template, fiber.Views engines satisfy it
type Renderer interface {
	Render(out io.Writer, name string, binding any, layout ...string) error
}

// ConfirmURL builds the absolute confirmation link for a token
func ConfirmURL(scheme, host, confirmPath, token string) string {
	if scheme == "" {
		scheme = "http"
	}
	if confirmPath == "" {
		confirmPath = "/confirm"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   strings.TrimSuffix(confirmPath, "/") + "/" + token,
	}
	return u.String()
}

// MailWorker turns MailJobs into confirmation emails
type MailWorker struct {
	Users       UserFinder
	Codec       *TokenCodec
	Translator  *Translator
	Views       Renderer
	Sender      mailer.Sender
	From        string
	ConfirmPath string
	Logger      Logger
}

// MailWorkerOption configures a MailWorker
type MailWorkerOption func(*MailWorker) *MailWorker

// NewMailWorker creates a worker, it panics when a dependency is missing
func NewMailWorker(opts ...MailWorkerOption) *MailWorker {
	w := &MailWorker{
		ConfirmPath: "/confirm",
		From:        "no-reply@localhost",
		Logger:      defaultLogger(),
	}

	for _, opt := range opts {
		w = opt(w)
	}

	if w.Users == nil {
		panic("Missing UserFinder in mail worker...")
	}

	if w.Codec == nil {
		panic("Missing TokenCodec in mail worker...")
	}

	if w.Views == nil {
		panic("Missing Renderer in mail worker...")
	}

	if w.Sender == nil {
		panic("Missing mailer.Sender in mail worker...")
	}

	if w.Translator == nil {
		w.Translator = NewTranslator(DefaultLocale)
	}

	return w
}

func WithWorkerUsers(users UserFinder) MailWorkerOption {
	return func(w *MailWorker) *MailWorker {
		w.Users = users
		return w
	}
}

func WithWorkerCodec(codec *TokenCodec) MailWorkerOption {
	return func(w *MailWorker) *MailWorker {
		w.Codec = codec
		return w
	}
}

func WithWorkerTranslator(t *Translator) MailWorkerOption {
	return func(w *MailWorker) *MailWorker {
		w.Translator = t
		return w
	}
}

func WithWorkerViews(views Renderer) MailWorkerOption {
	return func(w *MailWorker) *MailWorker {
		w.Views = views
		return w
	}
}

func WithWorkerSender(sender mailer.Sender) MailWorkerOption {
	return func(w *MailWorker) *MailWorker {
		w.Sender = sender
		return w
	}
}

func WithWorkerFrom(from string) MailWorkerOption {
	return func(w *MailWorker) *MailWorker {
		if from != "" {
			w.From = from
		}
		return w
	}
}

func WithWorkerConfirmPath(path string) MailWorkerOption {
	return func(w *MailWorker) *MailWorker {
		if path != "" {
			w.ConfirmPath = path
		}
		return w
	}
}

func WithWorkerLogger(logger Logger) MailWorkerOption {
	return func(w *MailWorker) *MailWorker {
		if logger != nil {
			w.Logger = logger
		}
		return w
	}
}

// Handle sends one confirmation email. A fresh token is minted for every
// job so resent links always carry a full lifetime.
func (w *MailWorker) Handle(ctx context.Context, job MailJob) error {
	user, err := w.Users.GetByID(ctx, job.UserID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load mail job user").
			WithMetadata(map[string]any{"user_id": job.UserID.String()})
	}

	token, err := w.Codec.Encode(user.ID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to encode confirmation token").
			WithMetadata(map[string]any{"user_id": job.UserID.String()})
	}

	tag := w.Translator.Lookup(job.Locale)
	printer := w.Translator.Printer(tag)

	link := ConfirmURL(job.Scheme, job.Host, w.ConfirmPath, token)

	var body bytes.Buffer
	if err := w.Views.Render(&body, ConfirmEmailTemplate, mergeTemplateData(TemplateHelpers(), map[string]any{
		"user":          user,
		"confirm_url":   link,
		"locale":        LocaleName(tag),
		"max_age_hours": int(w.Codec.MaxAge().Hours()),
		"host":          job.Host,
	})); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render confirmation email")
	}

	msg := mailer.Message{
		From:    w.From,
		To:      []string{user.Email},
		Subject: printer.Sprintf(MsgConfirmSubject),
		Body:    body.String(),
		HTML:    true,
	}

	if err := w.Sender.Send(ctx, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send confirmation email").
			WithMetadata(map[string]any{"email": user.Email})
	}

	w.Logger.Info("confirmation email sent", "user", user.ID, "locale", LocaleName(tag))
	return nil
}
