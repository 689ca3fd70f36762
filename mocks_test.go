package account_test

import (
	"context"

	account "github.com/goliatone/go-account"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserTracker implements account.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockUserTracker) GetByEmail(ctx context.Context, email string) (*account.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *account.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *account.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockUserFinder implements account.UserFinder
type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) GetByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

// MockEmailChecker implements account.EmailChecker
type MockEmailChecker struct {
	mock.Mock
}

func (m *MockEmailChecker) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// MockAuthBackend implements account.AuthBackend
type MockAuthBackend struct {
	mock.Mock
}

func (m *MockAuthBackend) Name() string {
	return "mock"
}

func (m *MockAuthBackend) Authenticate(ctx context.Context, email, password string) (*account.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockAuthBackend) UserCanAuthenticate(user *account.User) bool {
	return user != nil && user.IsActive
}

func (m *MockAuthBackend) GetUser(ctx context.Context, id uuid.UUID) (*account.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

// MockMailDispatcher implements account.MailDispatcher
type MockMailDispatcher struct {
	mock.Mock
}

func (m *MockMailDispatcher) Dispatch(ctx context.Context, job account.MailJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}
