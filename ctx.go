package account

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

const (
	localsUser     = "account.user"
	localsLocale   = "account.locale"
	localsPrinter  = "account.printer"
	localsMessages = "account.messages"
	localsSession  = "account.session"
	localsOrigin   = "account.origin"
)

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// CurrentUser returns the authenticated user for the request, if any
func CurrentUser(c router.Context) (*User, bool) {
	if user, ok := c.Locals(localsUser).(*User); ok && user != nil {
		return user, true
	}
	return FromContext(c.Context())
}

// Locale returns the language negotiated for the request
func Locale(c router.Context) language.Tag {
	if tag, ok := c.Locals(localsLocale).(language.Tag); ok {
		return tag
	}
	return language.Ukrainian
}

// Printer returns the message printer for the request language
func Printer(c router.Context) *message.Printer {
	if p, ok := c.Locals(localsPrinter).(*message.Printer); ok {
		return p
	}
	return message.NewPrinter(Locale(c))
}

// FlashMessage is a notice shown above the page content
type FlashMessage struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"
)

const (
	flashLevelKey = "level"
	flashTextKey  = "message"
)

// AddMessage shows a message on the page rendered by this request
func AddMessage(c router.Context, level, text string) {
	msgs := Messages(c)
	c.Locals(localsMessages, append(msgs, FlashMessage{Level: level, Text: text}))
}

// Flash keeps a message for the next page the visitor loads, use it
// before redirecting
func Flash(c router.Context, level, text string) router.Context {
	data := router.ViewContext{
		flashLevelKey: level,
		flashTextKey:  text,
	}

	if level == LevelError {
		return flash.WithError(c, data)
	}
	return flash.WithSuccess(c, data)
}

// Messages returns the messages flashed by the previous response
// followed by the ones added during this request
func Messages(c router.Context) []FlashMessage {
	if msgs, ok := c.Locals(localsMessages).([]FlashMessage); ok {
		return msgs
	}

	msgs := flashedMessages(c)
	c.Locals(localsMessages, msgs)
	return msgs
}

func flashedMessages(c router.Context) []FlashMessage {
	data := flash.Get(c)
	if len(data) == 0 {
		return []FlashMessage{}
	}

	text, _ := data[flashTextKey].(string)
	if text == "" {
		return []FlashMessage{}
	}

	level, _ := data[flashLevelKey].(string)
	if level == "" {
		level = LevelInfo
	}

	return []FlashMessage{{Level: level, Text: text}}
}
