package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func userWithPassword(t *testing.T, password string) *account.User {
	t.Helper()
	u := account.NewUser("ann@example.com", "Ann", "Lee")
	require.NoError(t, u.SetPassword(password))
	return u
}

func TestModelBackendAuthenticate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("successful login is tracked", func(t *testing.T) {
		user := userWithPassword(t, "secret-pass")
		store := new(MockUserTracker)
		store.On("GetByEmail", ctx, "ann@example.com").Return(user, nil)
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil)

		backend := account.NewModelBackend(store).WithClock(clock).WithLogger(quietLogger)
		got, err := backend.Authenticate(ctx, "ann@example.com", "secret-pass")

		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		store.AssertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		store := new(MockUserTracker)
		store.On("GetByEmail", ctx, "nobody@example.com").Return(nil, account.ErrUserNotFound)

		backend := account.NewModelBackend(store)
		got, err := backend.Authenticate(ctx, "nobody@example.com", "secret-pass")

		assert.ErrorIs(t, err, account.ErrInvalidLogin)
		assert.Nil(t, got)
		store.AssertNotCalled(t, "TrackAttemptedLogin", mock.Anything, mock.Anything)
	})

	t.Run("wrong password counts an attempt", func(t *testing.T) {
		user := userWithPassword(t, "secret-pass")
		store := new(MockUserTracker)
		store.On("GetByEmail", ctx, "ann@example.com").Return(user, nil)
		store.On("TrackAttemptedLogin", ctx, user).Return(nil).Once()

		backend := account.NewModelBackend(store).WithClock(clock)
		_, err := backend.Authenticate(ctx, "ann@example.com", "wrong")

		assert.ErrorIs(t, err, account.ErrInvalidLogin)
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "TrackSuccessfulLogin", mock.Anything, mock.Anything)
	})

	t.Run("locked within cool down", func(t *testing.T) {
		user := userWithPassword(t, "secret-pass")
		attempt := now.Add(-time.Hour)
		user.LoginAttempts = account.MaxLoginAttempts
		user.LoginAttemptAt = &attempt

		store := new(MockUserTracker)
		store.On("GetByEmail", ctx, "ann@example.com").Return(user, nil)

		backend := account.NewModelBackend(store).WithClock(clock)
		_, err := backend.Authenticate(ctx, "ann@example.com", "secret-pass")

		assert.ErrorIs(t, err, account.ErrTooManyLoginAttempts)
		store.AssertExpectations(t)
	})

	t.Run("attempts reset after cool down", func(t *testing.T) {
		user := userWithPassword(t, "secret-pass")
		attempt := now.Add(-25 * time.Hour)
		user.LoginAttempts = account.MaxLoginAttempts
		user.LoginAttemptAt = &attempt

		store := new(MockUserTracker)
		store.On("GetByEmail", ctx, "ann@example.com").Return(user, nil)
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil)

		backend := account.NewModelBackend(store).WithClock(clock)
		got, err := backend.Authenticate(ctx, "ann@example.com", "secret-pass")

		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		store.AssertExpectations(t)
	})

	t.Run("inactive user is returned but not tracked", func(t *testing.T) {
		user := userWithPassword(t, "secret-pass")
		user.IsActive = false

		store := new(MockUserTracker)
		store.On("GetByEmail", ctx, "ann@example.com").Return(user, nil)

		backend := account.NewModelBackend(store)
		got, err := backend.Authenticate(ctx, "ann@example.com", "secret-pass")

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.False(t, backend.UserCanAuthenticate(got))
		store.AssertNotCalled(t, "TrackSuccessfulLogin", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		store := new(MockUserTracker)
		store.On("GetByEmail", ctx, "ann@example.com").Return(nil, errors.New("connection reset"))

		backend := account.NewModelBackend(store)
		_, err := backend.Authenticate(ctx, "ann@example.com", "secret-pass")

		require.Error(t, err)
		assert.NotErrorIs(t, err, account.ErrInvalidLogin)
	})

	t.Run("tracking failure on success is not fatal", func(t *testing.T) {
		user := userWithPassword(t, "secret-pass")
		store := new(MockUserTracker)
		store.On("GetByEmail", ctx, "ann@example.com").Return(user, nil)
		store.On("TrackSuccessfulLogin", ctx, user).Return(errors.New("read only"))

		backend := account.NewModelBackend(store).WithLogger(quietLogger)
		got, err := backend.Authenticate(ctx, "ann@example.com", "secret-pass")

		require.NoError(t, err)
		assert.NotNil(t, got)
	})
}

func TestModelBackendGetUser(t *testing.T) {
	ctx := context.Background()

	active := account.NewUser("ann@example.com", "Ann", "Lee")
	inactive := account.NewUser("bob@example.com", "Bob", "Lee")
	inactive.IsActive = false
	missing := uuid.New()

	store := new(MockUserTracker)
	store.On("GetByID", ctx, active.ID).Return(active, nil)
	store.On("GetByID", ctx, inactive.ID).Return(inactive, nil)
	store.On("GetByID", ctx, missing).Return(nil, account.ErrUserNotFound)

	backend := account.NewModelBackend(store)

	got, err := backend.GetUser(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, active, got)

	_, err = backend.GetUser(ctx, inactive.ID)
	assert.ErrorIs(t, err, account.ErrInactiveAccount)

	_, err = backend.GetUser(ctx, missing)
	assert.True(t, goerrors.IsNotFound(err))

	assert.Equal(t, "model", backend.Name())
}

func TestModelBackendWithRepository(t *testing.T) {
	ctx := context.Background()
	repo := account.NewRepositoryManager(newTestDB(t))
	user := createUser(t, repo, "ann@example.com", "secret-pass")

	backend := account.NewModelBackend(repo.Users()).WithLogger(quietLogger)

	for i := 0; i < account.MaxLoginAttempts; i++ {
		_, err := backend.Authenticate(ctx, "ann@example.com", "wrong")
		require.ErrorIs(t, err, account.ErrInvalidLogin)
	}

	_, err := backend.Authenticate(ctx, "ann@example.com", "secret-pass")
	assert.ErrorIs(t, err, account.ErrTooManyLoginAttempts)

	stored, err := repo.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, account.MaxLoginAttempts, stored.LoginAttempts)
	assert.NotNil(t, stored.LoginAttemptAt)
	assert.Nil(t, stored.LastLogin)
}

func TestModelBackendCoolDownExpiry(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	users := account.NewUsersRepository(db, account.NewProfilesRepository(db), account.WithUsersClock(clock))
	user := account.NewUser("ann@example.com", "Ann", "Lee")
	require.NoError(t, user.SetPassword("secret-pass"))
	_, err := users.Create(ctx, user)
	require.NoError(t, err)

	backend := account.NewModelBackend(users).WithLogger(quietLogger).WithClock(clock)

	for i := 0; i < account.MaxLoginAttempts; i++ {
		_, err := backend.Authenticate(ctx, "ann@example.com", "wrong")
		require.ErrorIs(t, err, account.ErrInvalidLogin)
	}

	_, err = backend.Authenticate(ctx, "ann@example.com", "secret-pass")
	require.ErrorIs(t, err, account.ErrTooManyLoginAttempts)

	now = now.Add(25 * time.Hour)

	_, err = backend.Authenticate(ctx, "ann@example.com", "wrong")
	require.ErrorIs(t, err, account.ErrInvalidLogin)

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LoginAttempts)
	require.NotNil(t, stored.LoginAttemptAt)
	assert.True(t, stored.LoginAttemptAt.Equal(now))

	got, err := backend.Authenticate(ctx, "ann@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	stored, err = users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.LoginAttempts)
	require.NotNil(t, stored.LastLogin)
}
