package account

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. Keys are the English text so an untranslated lookup
// still renders something readable.
const (
	MsgRequired          = "This field is required."
	MsgInvalidEmail      = "Enter a valid email address."
	MsgEmailTaken        = "A user with that email already exists."
	MsgPasswordMismatch  = "Passwords do not match"
	MsgPasswordTooShort  = "This password is too short. It must contain at least %d characters."
	MsgPasswordNumeric   = "This password is entirely numeric."
	MsgNameChars         = "Only letters and hyphens are allowed."
	MsgLengthBetween     = "Ensure this value has between %d and %d characters."
	MsgLengthAtMost      = "Ensure this value has at most %d characters."
	MsgInvalidPhone      = "Enter a valid phone number."
	MsgInvalidLogin      = "Please enter a correct email address and password."
	MsgInactive          = "This account is inactive."
	MsgTooManyAttempts   = "Too many failed login attempts. Try again later."
	MsgProfileUpdated    = "Your profile was updated successfully!"
	MsgProfileError      = "Please correct the error below."
	MsgConfirmSubject    = "Confirm your email address"
	MsgInternalError     = "Something went wrong"
	MsgUserCreated       = "User %s was created."
	MsgLoginRequired     = "Please log in to see this page."
	MsgPermissionDenied  = "You do not have permission to see this page."
	MsgEmailConfirmed    = "Your email address has been confirmed."
	MsgConfirmLinkResent = "The link has expired. We sent you a new one."
)

var ukrainian = map[string]string{
	MsgRequired:          "Обов'язкове поле.",
	MsgInvalidEmail:      "Введіть правильну адресу електронної пошти.",
	MsgEmailTaken:        "Користувач з такою електронною адресою вже існує.",
	MsgPasswordMismatch:  "Паролі не співпадають",
	MsgPasswordTooShort:  "Пароль занадто короткий. Він повинен містити щонайменше %d символів.",
	MsgPasswordNumeric:   "Пароль складається лише з цифр.",
	MsgNameChars:         "Дозволені лише літери та дефіс.",
	MsgLengthBetween:     "Значення повинно містити від %d до %d символів.",
	MsgLengthAtMost:      "Значення повинно містити не більше %d символів.",
	MsgInvalidPhone:      "Введіть правильний номер телефону.",
	MsgInvalidLogin:      "Будь ласка введіть правильну електронну адресу та пароль.",
	MsgInactive:          "Цей акаунт не активований.",
	MsgTooManyAttempts:   "Забагато невдалих спроб входу. Спробуйте пізніше.",
	MsgProfileUpdated:    "Ваш профіль був успішно оновлений!",
	MsgProfileError:      "Будь-ласка виправте помилку нижче.",
	MsgConfirmSubject:    "Підтвердіть вашу електронну адресу",
	MsgInternalError:     "Щось пішло не так",
	MsgUserCreated:       "Користувача %s створено.",
	MsgLoginRequired:     "Будь ласка, увійдіть, щоб переглянути цю сторінку.",
	MsgPermissionDenied:  "У вас немає доступу до цієї сторінки.",
	MsgEmailConfirmed:    "Вашу електронну адресу підтверджено.",
	MsgConfirmLinkResent: "Термін дії посилання минув. Ми надіслали вам нове.",
}

// DefaultLocale is the site language
const DefaultLocale = "uk"

// Translator matches client languages against the supported locales
// and hands out printers backed by the account catalog.
type Translator struct {
	catalog   *catalog.Builder
	supported []language.Tag
	matcher   language.Matcher
}

// NewTranslator builds the catalog. The default locale is matched first
// when the client preference is unknown.
func NewTranslator(defaultLocale string) *Translator {
	def, err := language.Parse(defaultLocale)
	if err != nil {
		def = language.Ukrainian
	}

	supported := []language.Tag{def}
	for _, t := range []language.Tag{language.Ukrainian, language.English} {
		if t != def {
			supported = append(supported, t)
		}
	}

	b := catalog.NewBuilder()
	for key, msg := range ukrainian {
		// keys are static, SetString only fails on malformed input
		_ = b.SetString(language.Ukrainian, key, msg)
	}
	for key := range ukrainian {
		_ = b.SetString(language.English, key, key)
	}

	return &Translator{
		catalog:   b,
		supported: supported,
		matcher:   language.NewMatcher(supported),
	}
}

// Default returns the default locale tag
func (t *Translator) Default() language.Tag {
	return t.supported[0]
}

// Match resolves an Accept-Language header value to a supported tag
func (t *Translator) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.Default()
	}

	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return t.Default()
	}
	return t.supported[idx]
}

// Lookup resolves a locale string such as "en" or "uk-UA"
func (t *Translator) Lookup(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return t.Default()
	}
	return t.Match(locale)
}

// Printer returns a printer for the tag
func (t *Translator) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(t.catalog))
}

// PrinterFor returns a printer for a locale string
func (t *Translator) PrinterFor(locale string) *message.Printer {
	return t.Printer(t.Lookup(locale))
}

// LocaleName returns the short locale code, "uk" or "en"
func LocaleName(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
