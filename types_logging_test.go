package account_test

import (
	"context"
	"errors"
	"testing"

	account "github.com/goliatone/go-account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }

func (l *captureLogger) find(level, message string) (logCall, bool) {
	for _, c := range l.calls {
		if c.level == level && c.message == message {
			return c, true
		}
	}
	return logCall{}, false
}

var _ account.Logger = (*captureLogger)(nil)

func TestBackendLogsTrackingFailure(t *testing.T) {
	ctx := context.Background()
	user := userWithPassword(t, "secret-pass")

	store := new(MockUserTracker)
	store.On("GetByEmail", ctx, "ann@example.com").Return(user, nil)
	store.On("TrackSuccessfulLogin", ctx, user).Return(errors.New("read only"))

	logger := &captureLogger{}
	backend := account.NewModelBackend(store).WithLogger(logger)

	_, err := backend.Authenticate(ctx, "ann@example.com", "secret-pass")
	require.NoError(t, err)

	call, ok := logger.find("error", "failed to track successful login")
	require.True(t, ok)
	assert.Equal(t, []any{"user", user.ID, "error", errors.New("read only")}, call.args)
}

func TestControllerLogsMailDispatchFailure(t *testing.T) {
	repo := account.NewRepositoryManager(newTestDB(t))

	mailer := new(MockMailDispatcher)
	mailer.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	logger := &captureLogger{}
	views := &recordingViews{}

	controller := account.NewAccountController(
		account.WithControllerLogger(logger),
		account.WithRepositoryManager(repo),
		account.WithAuthBackend(account.NewModelBackend(repo.Users())),
		account.WithTokenCodec(newCodec(repo.Users(), &fakeClock{})),
		account.WithMailDispatcher(mailer),
	)

	app := newAppWithViews(views, controller)
	resp := (&client{h: &harness{t: t, app: app}, cookies: map[string]string{}}).post("/signup", signupValues())

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "registration/signup_done", views.Last().Name)

	_, ok := logger.find("error", "failed to dispatch confirmation email")
	assert.True(t, ok)
	mailer.AssertExpectations(t)
}

func TestMigrateLogsThroughLogger(t *testing.T) {
	logger := &captureLogger{}
	db := newTestDB(t)

	require.NoError(t, account.Migrate(context.Background(), db, logger))

	for _, c := range logger.calls {
		assert.NotEqual(t, "error", c.level, c.message)
	}
}
