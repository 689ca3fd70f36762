package account_test

import (
	"errors"
	"net/http"
	"testing"

	account "github.com/goliatone/go-account"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "user not found",
			err:      account.ErrUserNotFound,
			expected: true,
		},
		{
			name:     "wrapped profile not found",
			err:      goerrors.Wrap(account.ErrProfileNotFound, goerrors.CategoryNotFound, "load profile"),
			expected: true,
		},
		{
			name:     "invalid login",
			err:      account.ErrInvalidLogin,
			expected: false,
		},
		{
			name:     "plain error with same text",
			err:      errors.New("user not found"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, goerrors.IsNotFound(tt.err))
		})
	}
}

func TestStructuredErrorProperties(t *testing.T) {
	t.Run("ErrUserNotFound", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryNotFound, account.ErrUserNotFound.Category)
		assert.Equal(t, account.TextCodeUserNotFound, account.ErrUserNotFound.TextCode)
	})

	t.Run("ErrProfileNotFound", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryNotFound, account.ErrProfileNotFound.Category)
		assert.Equal(t, account.TextCodeProfileNotFound, account.ErrProfileNotFound.TextCode)
	})

	t.Run("ErrInvalidLogin", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, account.ErrInvalidLogin.Category)
		assert.Equal(t, account.TextCodeInvalidLogin, account.ErrInvalidLogin.TextCode)
	})

	t.Run("ErrTooManyLoginAttempts", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryRateLimit, account.ErrTooManyLoginAttempts.Category)
		assert.Equal(t, account.TextCodeTooManyAttempts, account.ErrTooManyLoginAttempts.TextCode)
	})

	t.Run("ErrNoEmptyString", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryValidation, account.ErrNoEmptyString.Category)
		assert.Equal(t, account.TextCodeEmptyPassword, account.ErrNoEmptyString.TextCode)
	})

	t.Run("ErrEmailTaken", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryConflict, account.ErrEmailTaken.Category)
		assert.Equal(t, account.TextCodeEmailTaken, account.ErrEmailTaken.TextCode)
	})

	t.Run("ErrMissingUserID", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryBadInput, account.ErrMissingUserID.Category)
		assert.Equal(t, account.TextCodeMissingUserID, account.ErrMissingUserID.TextCode)
	})
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []*goerrors.Error{
		account.ErrUserNotFound,
		account.ErrProfileNotFound,
		account.ErrInvalidLogin,
		account.ErrInactiveAccount,
		account.ErrTooManyLoginAttempts,
		account.ErrNoEmptyString,
		account.ErrMismatchedHashAndPassword,
		account.ErrUnableToFindSession,
		account.ErrEmailTaken,
		account.ErrMissingUserID,
	}

	codes := map[string]bool{}
	for i, a := range sentinels {
		assert.False(t, codes[a.TextCode], "duplicate text code %s", a.TextCode)
		codes[a.TextCode] = true

		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.NotSame(t, a, b)
		}
	}
}

func TestRichError(t *testing.T) {
	t.Run("structured errors pass through", func(t *testing.T) {
		rich := account.RichError(account.ErrEmailTaken)
		assert.Same(t, account.ErrEmailTaken, rich)
	})

	t.Run("plain errors become internal", func(t *testing.T) {
		rich := account.RichError(errors.New("disk on fire"))
		require.NotNil(t, rich)
		assert.Equal(t, goerrors.CategoryInternal, rich.Category)
		assert.Equal(t, goerrors.CodeInternal, rich.Code)
	})
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "not found",
			err:      account.ErrUserNotFound,
			expected: http.StatusNotFound,
		},
		{
			name:     "session missing",
			err:      account.ErrUnableToFindSession,
			expected: http.StatusUnauthorized,
		},
		{
			name:     "email conflict",
			err:      account.ErrEmailTaken,
			expected: http.StatusConflict,
		},
		{
			name:     "rate limit from category",
			err:      account.ErrTooManyLoginAttempts,
			expected: http.StatusTooManyRequests,
		},
		{
			name:     "authz from category",
			err:      goerrors.New("staff only", goerrors.CategoryAuthz),
			expected: http.StatusForbidden,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, account.StatusFromError(tt.err))
		})
	}
}
