package account

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds account options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetConfirmTokenMaxAge() time.Duration
	GetSessionExpiration() time.Duration
	GetPasswordHashCost() int
	GetDefaultLocale() string
}

// UserFinder resolves users by id
type UserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// AuthBackend verifies credentials and decides if an account can log in.
// The login flow receives one at construction time.
type AuthBackend interface {
	Name() string
	Authenticate(ctx context.Context, email, password string) (*User, error)
	UserCanAuthenticate(user *User) bool
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
}

// MailDispatcher submits mail jobs, fire and forget
type MailDispatcher interface {
	Dispatch(ctx context.Context, job MailJob) error
}

type defLogger struct {
	l *slog.Logger
}

func defaultLogger() Logger {
	return defLogger{
		l: slog.New(slog.NewTextHandler(os.Stdout, nil)).With("scope", "account"),
	}
}

// NewLogger returns the default slog backed Logger using the given name
func NewLogger(name string, level slog.Level) Logger {
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return defLogger{l: slog.New(h).With("scope", name)}
}

func (d defLogger) Error(msg string, args ...any) {
	d.slog().Error(msg, args...)
}

func (d defLogger) Info(msg string, args ...any) {
	d.slog().Info(msg, args...)
}

func (d defLogger) Debug(msg string, args ...any) {
	d.slog().Debug(msg, args...)
}

func (d defLogger) slog() *slog.Logger {
	if d.l == nil {
		return slog.Default()
	}
	return d.l
}
