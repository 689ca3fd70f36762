package account

import (
	"context"
	"errors"
	"regexp"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/message"
)

// MinPasswordLength applies to self service signups
const MinPasswordLength = 8

// PhoneRegion is used to parse numbers written without a country code
var PhoneRegion = "UA"

var nameRegexp = regexp.MustCompile(`^[A-Za-zА-Яа-яІіЇїЄєҐґЁё-]+$`)

type rules struct {
	p *message.Printer
}

func newRules(p *message.Printer) rules {
	if p == nil {
		p = message.NewPrinter(message.MatchLanguage("en"))
	}
	return rules{p: p}
}

func (r rules) required() validation.Rule {
	return validation.Required.Error(r.p.Sprintf(MsgRequired))
}

func (r rules) maxLength(n int) validation.Rule {
	return validation.RuneLength(0, n).Error(r.p.Sprintf(MsgLengthAtMost, n))
}

func (r rules) email() []validation.Rule {
	return []validation.Rule{
		r.required(),
		r.maxLength(255),
		is.Email.Error(r.p.Sprintf(MsgInvalidEmail)),
	}
}

func (r rules) name(required bool) []validation.Rule {
	out := []validation.Rule{}
	if required {
		out = append(out, r.required())
	}
	return append(out,
		validation.RuneLength(2, 30).Error(r.p.Sprintf(MsgLengthBetween, 2, 30)),
		validation.Match(nameRegexp).Error(r.p.Sprintf(MsgNameChars)),
	)
}

func (r rules) matches(other string) validation.Rule {
	return validation.By(ValidateStringEquals(other, r.p.Sprintf(MsgPasswordMismatch)))
}

func (r rules) strongPassword() []validation.Rule {
	return []validation.Rule{
		validation.RuneLength(MinPasswordLength, 0).Error(r.p.Sprintf(MsgPasswordTooShort, MinPasswordLength)),
		validation.By(func(value any) error {
			s, _ := value.(string)
			if s != "" && isNumeric(s) {
				return errors.New(r.p.Sprintf(MsgPasswordNumeric))
			}
			return nil
		}),
	}
}

func (r rules) phone() validation.Rule {
	return validation.By(func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := NormalizePhone(s); err != nil {
			return errors.New(r.p.Sprintf(MsgInvalidPhone))
		}
		return nil
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string, msg ...string) validation.RuleFunc {
	text := "values must match"
	if len(msg) > 0 && msg[0] != "" {
		text = msg[0]
	}
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(text)
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens validation errors for templates
func FormatValidationErrorToMap(err error) FormErrors {
	out := FormErrors{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		out[NonFieldErrors] = err.Error()
		return out
	}

	for field, ferr := range verrs {
		if ferr == nil {
			continue
		}
		out[field] = ferr.Error()
	}
	return out
}

// IsValidationError reports whether err carries field errors
func IsValidationError(err error) bool {
	var verrs validation.Errors
	return errors.As(err, &verrs)
}

// NormalizePhone parses a number, defaulting to PhoneRegion, and
// returns it in E.164 form
func NormalizePhone(phone string) (string, error) {
	num, err := phonenumbers.Parse(phone, PhoneRegion)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"phone": phone})
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func collectErrors(err error) (validation.Errors, error) {
	if err == nil {
		return validation.Errors{}, nil
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return verrs, nil
	}
	return nil, err
}

func checkEmailFree(ctx context.Context, users EmailChecker, email string, errs validation.Errors, r rules) error {
	if users == nil || email == "" {
		return nil
	}

	if _, bad := errs["email"]; bad {
		return nil
	}

	taken, err := users.EmailExists(ctx, email)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email")
	}

	if taken {
		errs["email"] = errors.New(r.p.Sprintf(MsgEmailTaken))
	}
	return nil
}

func isNumeric(s string) bool {
	for _, c := range s {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return s != ""
}
