package account

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt cost used by HashPassword,
// auth.password_hash_cost overrides it at startup
var PasswordHashCost = passwordHashCost()

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", goerrors.Wrap(err, goerrors.CategoryValidation, "password is too long").
				WithCode(goerrors.CodeBadRequest)
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password").
			WithMetadata(map[string]any{"cost": PasswordHashCost})
	}
	return string(h), nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compare password hash")
	}
	return nil
}

// RandomPasswordHash is an unusable password for accounts
// created without credentials
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
