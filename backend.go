package account

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserTracker is the store the model backend reads and updates
type UserTracker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// MaxLoginAttempts is the maximun number of failed attempts a user gets
// in a cool down period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// ModelBackend authenticates users stored in the users table.
// Unlike a plain credential check it hands back inactive users,
// callers decide with UserCanAuthenticate.
type ModelBackend struct {
	store  UserTracker
	logger Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

var _ AuthBackend = (*ModelBackend)(nil)

// NewModelBackend will create a new ModelBackend
func NewModelBackend(store UserTracker) *ModelBackend {
	if store == nil {
		panic("model backend requires a user store")
	}
	return &ModelBackend{
		store:  store,
		logger: defaultLogger(),
		now:    time.Now,
	}
}

// WithLogger sets the backend logger
func (b *ModelBackend) WithLogger(l Logger) *ModelBackend {
	if l != nil {
		b.logger = l
	}
	return b
}

// WithClock replaces the time source used for throttling
func (b *ModelBackend) WithClock(now func() time.Time) *ModelBackend {
	if now != nil {
		b.now = now
	}
	return b
}

func (b *ModelBackend) Name() string {
	return "model"
}

// Authenticate finds the user by email and checks the password.
// Failed attempts are counted and too many within CoolDownPeriod
// lock the account until the period runs out.
func (b *ModelBackend) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := b.store.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// keep timing similar to a real password check
			_ = ComparePasswordAndHash(password, b.dummy())
			return nil, ErrInvalidLogin
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during authentication")
	}

	if user.LoginAttemptAt != nil {
		period := ParseWindow(CoolDownPeriod, 24*time.Hour)
		if IsOutsideWindow(*user.LoginAttemptAt, period, b.now()) {
			user.LoginAttempts = 0
		}
	}

	if user.LoginAttempts >= MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := b.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to track login attempt")
		}
		return nil, ErrInvalidLogin
	}

	if !b.UserCanAuthenticate(user) {
		return user, nil
	}

	if err := b.store.TrackSuccessfulLogin(ctx, user); err != nil {
		b.logger.Error("failed to track successful login", "user", user.ID, "error", err)
	}

	return user, nil
}

// UserCanAuthenticate rejects inactive users
func (b *ModelBackend) UserCanAuthenticate(user *User) bool {
	return user != nil && user.IsActive
}

// GetUser loads a user for an established session
func (b *ModelBackend) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := b.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !b.UserCanAuthenticate(user) {
		return nil, ErrInactiveAccount
	}
	return user, nil
}

func (b *ModelBackend) dummy() string {
	b.dummyOnce.Do(func() {
		b.dummyHash = RandomPasswordHash()
	})
	return b.dummyHash
}
