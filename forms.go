package account

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/text/message"
)

// NonFieldErrors is the errors map key for messages not tied to a field
const NonFieldErrors = "non_field"

// EmailChecker reports whether an email is already registered
type EmailChecker interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// FormErrors maps a field name to its error message
type FormErrors map[string]string

// Has reports whether the field has an error
func (e FormErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// SignupForm is the self service registration form
type SignupForm struct {
	Email     string     `form:"email" json:"email"`
	Password1 string     `form:"password1" json:"password1"`
	Password2 string     `form:"password2" json:"password2"`
	FirstName string     `form:"first_name" json:"first_name"`
	LastName  string     `form:"last_name" json:"last_name"`
	Errors    FormErrors `form:"-" json:"-"`
}

// Validate checks the fields and that the email is free
func (f *SignupForm) Validate(ctx context.Context, users EmailChecker, p *message.Printer) error {
	f.normalize()
	r := newRules(p)

	err := validation.ValidateStruct(f,
		validation.Field(&f.Email, r.email()...),
		validation.Field(&f.Password1, append([]validation.Rule{r.required()}, r.strongPassword()...)...),
		validation.Field(&f.Password2, r.required(), r.matches(f.Password1)),
		validation.Field(&f.FirstName, r.name(true)...),
		validation.Field(&f.LastName, r.name(true)...),
	)

	errs, err := collectErrors(err)
	if err != nil {
		return err
	}

	if err := checkEmailFree(ctx, users, f.Email, errs, r); err != nil {
		return err
	}

	f.Errors = FormatValidationErrorToMap(errs)
	return errs.Filter()
}

// RegisterMessage describes an unconfirmed user that gets a
// confirmation email
func (f *SignupForm) RegisterMessage() RegisterUserMessage {
	return RegisterUserMessage{
		Email:            f.Email,
		FirstName:        f.FirstName,
		LastName:         f.LastName,
		Password:         f.Password1,
		SendConfirmation: true,
	}
}

func (f *SignupForm) normalize() {
	f.Email = NormalizeEmail(f.Email)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
}

// LoginForm collects credentials, errors are always non field
type LoginForm struct {
	Email    string     `form:"email" json:"email"`
	Password string     `form:"password" json:"password"`
	Errors   FormErrors `form:"-" json:"-"`
}

func (f *LoginForm) Validate(p *message.Printer) error {
	f.Email = strings.TrimSpace(f.Email)
	r := newRules(p)

	err := validation.ValidateStruct(f,
		validation.Field(&f.Email, r.required()),
		validation.Field(&f.Password, r.required()),
	)

	errs, err := collectErrors(err)
	if err != nil {
		return err
	}

	f.Errors = FormatValidationErrorToMap(errs)
	return errs.Filter()
}

// Authenticate validates the form and checks the credentials with the backend.
// Inactive accounts are only reported once the password matched.
func (f *LoginForm) Authenticate(ctx context.Context, backend AuthBackend, p *message.Printer) (*User, error) {
	if err := f.Validate(p); err != nil {
		return nil, err
	}
	r := newRules(p)

	user, err := backend.Authenticate(ctx, f.Email, f.Password)
	switch {
	case errors.Is(err, ErrTooManyLoginAttempts):
		return nil, f.fail(r.p.Sprintf(MsgTooManyAttempts))
	case errors.Is(err, ErrInvalidLogin), errors.Is(err, ErrMismatchedHashAndPassword), goerrors.IsNotFound(err):
		return nil, f.fail(r.p.Sprintf(MsgInvalidLogin))
	case err != nil:
		return nil, err
	case user == nil:
		return nil, f.fail(r.p.Sprintf(MsgInvalidLogin))
	}

	if !backend.UserCanAuthenticate(user) {
		return nil, f.fail(r.p.Sprintf(MsgInactive))
	}

	return user, nil
}

func (f *LoginForm) fail(msg string) error {
	errs := validation.Errors{NonFieldErrors: errors.New(msg)}
	f.Errors = FormatValidationErrorToMap(errs)
	return errs
}

// UserForm edits the user's names
type UserForm struct {
	FirstName string     `form:"first_name" json:"first_name"`
	LastName  string     `form:"last_name" json:"last_name"`
	Errors    FormErrors `form:"-" json:"-"`
}

// NewUserForm returns a form filled with the user's values
func NewUserForm(u *User) *UserForm {
	return &UserForm{FirstName: u.FirstName, LastName: u.LastName}
}

func (f *UserForm) Validate(p *message.Printer) error {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	r := newRules(p)

	err := validation.ValidateStruct(f,
		validation.Field(&f.FirstName, r.name(false)...),
		validation.Field(&f.LastName, r.name(false)...),
	)

	errs, err := collectErrors(err)
	if err != nil {
		return err
	}

	f.Errors = FormatValidationErrorToMap(errs)
	return errs.Filter()
}

// Apply copies the form values onto the user
func (f *UserForm) Apply(u *User) {
	u.FirstName = f.FirstName
	u.LastName = f.LastName
}

// ProfileForm edits the optional contact details
type ProfileForm struct {
	Phone      string     `form:"phone" json:"phone"`
	Street     string     `form:"street" json:"street"`
	PostalCode string     `form:"postal_code" json:"postal_code"`
	City       string     `form:"city" json:"city"`
	Region     string     `form:"region" json:"region"`
	Province   string     `form:"province" json:"province"`
	Errors     FormErrors `form:"-" json:"-"`
}

// NewProfileForm returns a form filled with the profile's values
func NewProfileForm(p *Profile) *ProfileForm {
	if p == nil {
		return &ProfileForm{}
	}
	return &ProfileForm{
		Phone:      p.Phone,
		Street:     p.Street,
		PostalCode: p.PostalCode,
		City:       p.City,
		Region:     p.Region,
		Province:   p.Province,
	}
}

// Validate checks lengths and the phone number. A valid phone is
// rewritten in E.164 form.
func (f *ProfileForm) Validate(p *message.Printer) error {
	f.trim()
	r := newRules(p)

	err := validation.ValidateStruct(f,
		validation.Field(&f.Phone, r.maxLength(20), r.phone()),
		validation.Field(&f.Street, r.maxLength(50)),
		validation.Field(&f.PostalCode, r.maxLength(20)),
		validation.Field(&f.City, r.maxLength(50)),
		validation.Field(&f.Region, r.maxLength(50)),
		validation.Field(&f.Province, r.maxLength(50)),
	)

	errs, err := collectErrors(err)
	if err != nil {
		return err
	}

	if _, bad := errs["phone"]; !bad && f.Phone != "" {
		if phone, err := NormalizePhone(f.Phone); err == nil {
			f.Phone = phone
		}
	}

	f.Errors = FormatValidationErrorToMap(errs)
	return errs.Filter()
}

// Apply copies the form values onto the profile
func (f *ProfileForm) Apply(p *Profile) {
	p.Phone = f.Phone
	p.Street = f.Street
	p.PostalCode = f.PostalCode
	p.City = f.City
	p.Region = f.Region
	p.Province = f.Province
}

func (f *ProfileForm) trim() {
	for _, s := range []*string{&f.Phone, &f.Street, &f.PostalCode, &f.City, &f.Region, &f.Province} {
		*s = strings.TrimSpace(*s)
	}
}

// AddUserForm is used by staff and the createuser command
type AddUserForm struct {
	Email        string     `form:"email" json:"email"`
	FirstName    string     `form:"first_name" json:"first_name"`
	LastName     string     `form:"last_name" json:"last_name"`
	Password1    string     `form:"password1" json:"password1"`
	Password2    string     `form:"password2" json:"password2"`
	IsStaff      bool       `form:"is_staff" json:"is_staff"`
	IsSuperuser  bool       `form:"is_superuser" json:"is_superuser"`
	EmailConfirm bool       `form:"email_confirm" json:"email_confirm"`
	Errors       FormErrors `form:"-" json:"-"`
}

func (f *AddUserForm) Validate(ctx context.Context, users EmailChecker, p *message.Printer) error {
	f.Email = NormalizeEmail(f.Email)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	r := newRules(p)

	err := validation.ValidateStruct(f,
		validation.Field(&f.Email, r.email()...),
		validation.Field(&f.FirstName, r.name(true)...),
		validation.Field(&f.LastName, r.name(true)...),
		validation.Field(&f.Password1, r.required()),
		validation.Field(&f.Password2, r.required(), r.matches(f.Password1)),
	)

	errs, err := collectErrors(err)
	if err != nil {
		return err
	}

	if err := checkEmailFree(ctx, users, f.Email, errs, r); err != nil {
		return err
	}

	f.Errors = FormatValidationErrorToMap(errs)
	return errs.Filter()
}

// RegisterMessage describes a user with the requested flags
func (f *AddUserForm) RegisterMessage() RegisterUserMessage {
	return RegisterUserMessage{
		Email:        f.Email,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Password:     f.Password1,
		IsStaff:      f.IsStaff,
		IsSuperuser:  f.IsSuperuser,
		EmailConfirm: f.EmailConfirm,
	}
}

