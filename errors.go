package account

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUserNotFound     = "account_user_not_found"
	TextCodeProfileNotFound  = "account_profile_not_found"
	TextCodeInvalidLogin     = "account_invalid_login"
	TextCodeInactiveAccount  = "account_inactive"
	TextCodeTooManyAttempts  = "account_too_many_attempts"
	TextCodeEmptyPassword    = "account_empty_password"
	TextCodeInvalidCreds     = "account_invalid_credentials"
	TextCodeSessionNotFound  = "account_session_not_found"
	TextCodeEmailTaken       = "account_email_taken"
	TextCodeMissingUserID    = "account_missing_user_id"
	TextCodeFormParseFailure = "account_form_parse_failure"
)

// ErrUserNotFound is returned when no user matches a lookup
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrProfileNotFound is returned when a user has no profile row
var ErrProfileNotFound = goerrors.New("profile not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeProfileNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidLogin the email and password pair did not match
var ErrInvalidLogin = goerrors.New("invalid login", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidLogin).
	WithCode(goerrors.CodeUnauthorized)

// ErrInactiveAccount credentials are valid but the account is disabled
var ErrInactiveAccount = goerrors.New("inactive account", goerrors.CategoryAuth).
	WithTextCode(TextCodeInactiveAccount).
	WithCode(goerrors.CodeUnauthorized)

// ErrTooManyLoginAttempts the account is cooling down after failed logins
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrNoEmptyString we refuse to hash empty passwords
var ErrNoEmptyString = goerrors.New("empty string not allowed", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword password does not match the stored hash
var ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToFindSession the request carries no authenticated session
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailTaken another user already owns the email address
var ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrMissingUserID a record was saved without its owning user
var ErrMissingUserID = goerrors.New("record has no user id", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMissingUserID).
	WithCode(goerrors.CodeBadRequest)

// RichError returns err as a go-errors Error. Errors without a category
// are treated as internal failures.
func RichError(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}
	return richErr
}

// StatusFromError picks the HTTP status for an error page
func StatusFromError(err error) int {
	richErr := RichError(err)
	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
