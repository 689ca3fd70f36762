package account_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	account "github.com/goliatone/go-account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var translator = account.NewTranslator(account.DefaultLocale)

func validSignup() *account.SignupForm {
	return &account.SignupForm{
		Email:     "a@x.com",
		Password1: "abc12345",
		Password2: "abc12345",
		FirstName: "Ann",
		LastName:  "Lee",
	}
}

func TestSignupFormValidate(t *testing.T) {
	ctx := context.Background()
	en := translator.PrinterFor("en")

	tests := []struct {
		name    string
		mutate  func(f *account.SignupForm)
		field   string
		message string
	}{
		{
			name: "passwords do not match",
			mutate: func(f *account.SignupForm) {
				f.Password1, f.Password2 = "abc123", "abc124"
			},
			field:   "password2",
			message: "Passwords do not match",
		},
		{
			name:    "password too short",
			mutate:  func(f *account.SignupForm) { f.Password1, f.Password2 = "abc1", "abc1" },
			field:   "password1",
			message: "at least 8 characters",
		},
		{
			name:    "password entirely numeric",
			mutate:  func(f *account.SignupForm) { f.Password1, f.Password2 = "12345678", "12345678" },
			field:   "password1",
			message: "entirely numeric",
		},
		{
			name:    "missing email",
			mutate:  func(f *account.SignupForm) { f.Email = "" },
			field:   "email",
			message: "required",
		},
		{
			name:    "invalid email",
			mutate:  func(f *account.SignupForm) { f.Email = "not-an-email" },
			field:   "email",
			message: "valid email",
		},
		{
			name:    "name with digits",
			mutate:  func(f *account.SignupForm) { f.FirstName = "Ann2" },
			field:   "first_name",
			message: "letters",
		},
		{
			name:    "name too short",
			mutate:  func(f *account.SignupForm) { f.LastName = "L" },
			field:   "last_name",
			message: "between 2 and 30",
		},
		{
			name:    "name too long",
			mutate:  func(f *account.SignupForm) { f.LastName = strings.Repeat("a", 31) },
			field:   "last_name",
			message: "between 2 and 30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := new(MockEmailChecker)
			checker.On("EmailExists", mock.Anything, mock.Anything).Return(false, nil).Maybe()

			form := validSignup()
			tt.mutate(form)

			err := form.Validate(ctx, checker, en)
			require.Error(t, err)
			assert.True(t, account.IsValidationError(err))
			assert.Contains(t, form.Errors[tt.field], tt.message)
		})
	}
}

func TestSignupFormValid(t *testing.T) {
	ctx := context.Background()
	checker := new(MockEmailChecker)
	checker.On("EmailExists", mock.Anything, "a@x.com").Return(false, nil).Once()

	form := validSignup()
	form.Email = " a@X.com "
	form.FirstName = "Їжак-Ґава"

	require.NoError(t, form.Validate(ctx, checker, translator.PrinterFor("en")))
	assert.Empty(t, form.Errors)
	checker.AssertExpectations(t)

	user, err := form.RegisterMessage().NewUser()
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.False(t, user.EmailConfirm)
	assert.True(t, user.IsActive)
	assert.True(t, user.CheckPassword("abc12345"))
}

func TestSignupFormEmailTaken(t *testing.T) {
	ctx := context.Background()

	checker := new(MockEmailChecker)
	checker.On("EmailExists", mock.Anything, "a@x.com").Return(true, nil).Once()

	form := validSignup()
	err := form.Validate(ctx, checker, translator.PrinterFor("uk"))
	require.Error(t, err)
	assert.Equal(t, "Користувач з такою електронною адресою вже існує.", form.Errors["email"])

	broken := new(MockEmailChecker)
	broken.On("EmailExists", mock.Anything, "a@x.com").Return(false, errors.New("db down")).Once()

	err = validSignup().Validate(ctx, broken, translator.PrinterFor("uk"))
	require.Error(t, err)
	assert.False(t, account.IsValidationError(err))
}

func TestSignupFormLocalized(t *testing.T) {
	form := validSignup()
	form.Password2 = "different1"

	checker := new(MockEmailChecker)
	checker.On("EmailExists", mock.Anything, mock.Anything).Return(false, nil)

	require.Error(t, form.Validate(context.Background(), checker, translator.PrinterFor("uk")))
	assert.Equal(t, "Паролі не співпадають", form.Errors["password2"])
}

func TestLoginFormAuthenticate(t *testing.T) {
	ctx := context.Background()
	uk := translator.PrinterFor("uk")

	active := account.NewUser("ann@example.com", "Ann", "Lee")
	inactive := account.NewUser("bob@example.com", "Bob", "Lee")
	inactive.IsActive = false

	tests := []struct {
		name     string
		email    string
		password string
		setup    func(b *MockAuthBackend)
		wantUser bool
		message  string
	}{
		{
			name:     "valid credentials",
			email:    "ann@example.com",
			password: "secret-pass",
			setup: func(b *MockAuthBackend) {
				b.On("Authenticate", ctx, "ann@example.com", "secret-pass").Return(active, nil)
			},
			wantUser: true,
		},
		{
			name:     "wrong password",
			email:    "ann@example.com",
			password: "nope",
			setup: func(b *MockAuthBackend) {
				b.On("Authenticate", ctx, "ann@example.com", "nope").Return(nil, account.ErrInvalidLogin)
			},
			message: "Будь ласка введіть правильну електронну адресу та пароль.",
		},
		{
			name:     "inactive account",
			email:    "bob@example.com",
			password: "secret-pass",
			setup: func(b *MockAuthBackend) {
				b.On("Authenticate", ctx, "bob@example.com", "secret-pass").Return(inactive, nil)
			},
			message: "Цей акаунт не активований.",
		},
		{
			name:     "throttled",
			email:    "ann@example.com",
			password: "secret-pass",
			setup: func(b *MockAuthBackend) {
				b.On("Authenticate", ctx, "ann@example.com", "secret-pass").Return(nil, account.ErrTooManyLoginAttempts)
			},
			message: "Забагато невдалих спроб входу. Спробуйте пізніше.",
		},
		{
			name:     "missing password",
			email:    "ann@example.com",
			password: "",
			setup:    func(b *MockAuthBackend) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(MockAuthBackend)
			tt.setup(backend)

			form := &account.LoginForm{Email: tt.email, Password: tt.password}
			user, err := form.Authenticate(ctx, backend, uk)

			if tt.wantUser {
				require.NoError(t, err)
				assert.Equal(t, active.ID, user.ID)
				return
			}

			require.Error(t, err)
			assert.True(t, account.IsValidationError(err))
			assert.Nil(t, user)
			if tt.message != "" {
				assert.Equal(t, tt.message, form.Errors[account.NonFieldErrors])
			} else {
				assert.True(t, form.Errors.Has("password"))
			}
			backend.AssertExpectations(t)
		})
	}
}

func TestLoginFormBackendFailure(t *testing.T) {
	ctx := context.Background()
	backend := new(MockAuthBackend)
	backend.On("Authenticate", ctx, "ann@example.com", "pwd").Return(nil, errors.New("db down"))

	form := &account.LoginForm{Email: "ann@example.com", Password: "pwd"}
	_, err := form.Authenticate(ctx, backend, nil)
	require.Error(t, err)
	assert.False(t, account.IsValidationError(err))
}

func TestProfileFormValidate(t *testing.T) {
	en := translator.PrinterFor("en")

	t.Run("phone is normalized", func(t *testing.T) {
		form := &account.ProfileForm{Phone: "050 123 4567", City: " Kyiv "}
		require.NoError(t, form.Validate(en))
		assert.Equal(t, "+380501234567", form.Phone)
		assert.Equal(t, "Kyiv", form.City)
	})

	t.Run("international phone", func(t *testing.T) {
		form := &account.ProfileForm{Phone: "+44 20 7946 0958"}
		require.NoError(t, form.Validate(en))
		assert.Equal(t, "+442079460958", form.Phone)
	})

	t.Run("invalid phone", func(t *testing.T) {
		form := &account.ProfileForm{Phone: "12"}
		require.Error(t, form.Validate(en))
		assert.Equal(t, "Enter a valid phone number.", form.Errors["phone"])
	})

	t.Run("too long", func(t *testing.T) {
		form := &account.ProfileForm{Street: strings.Repeat("s", 51), PostalCode: strings.Repeat("1", 21)}
		require.Error(t, form.Validate(en))
		assert.Contains(t, form.Errors["street"], "at most 50")
		assert.Contains(t, form.Errors["postal_code"], "at most 20")
	})

	t.Run("all empty is fine", func(t *testing.T) {
		form := &account.ProfileForm{}
		assert.NoError(t, form.Validate(en))
	})
}

func TestUserFormValidate(t *testing.T) {
	en := translator.PrinterFor("en")

	form := &account.UserForm{FirstName: "", LastName: ""}
	assert.NoError(t, form.Validate(en))

	form = &account.UserForm{FirstName: "Ann", LastName: "L33"}
	require.Error(t, form.Validate(en))
	assert.True(t, form.Errors.Has("last_name"))
	assert.False(t, form.Errors.Has("first_name"))

	user := account.NewUser("ann@example.com", "Old", "Name")
	(&account.UserForm{FirstName: "New", LastName: "Name"}).Apply(user)
	assert.Equal(t, "New Name", user.FullName())
}

func TestAddUserForm(t *testing.T) {
	ctx := context.Background()
	en := translator.PrinterFor("en")

	checker := new(MockEmailChecker)
	checker.On("EmailExists", mock.Anything, mock.Anything).Return(false, nil)

	form := &account.AddUserForm{
		Email:     "staff@example.com",
		FirstName: "Sam",
		LastName:  "Staff",
		Password1: "x",
		Password2: "y",
	}
	require.Error(t, form.Validate(ctx, checker, en))
	assert.Equal(t, "Passwords do not match", form.Errors["password2"])

	form.Password2 = "x"
	form.IsSuperuser = true
	require.NoError(t, form.Validate(ctx, checker, en), "no strength rules for staff created users")

	user, err := form.RegisterMessage().NewUser()
	require.NoError(t, err)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.IsStaff)
	assert.True(t, user.CheckPassword("x"))
}

func TestFormatValidationErrorToMap(t *testing.T) {
	assert.Empty(t, account.FormatValidationErrorToMap(nil))

	m := account.FormatValidationErrorToMap(errors.New("boom"))
	assert.Equal(t, "boom", m[account.NonFieldErrors])
}

func TestValidateStringEquals(t *testing.T) {
	rule := account.ValidateStringEquals("abc")
	assert.NoError(t, rule("abc"))
	assert.EqualError(t, rule("abd"), "values must match")

	rule = account.ValidateStringEquals("abc", "custom")
	assert.EqualError(t, rule("x"), "custom")
}
