// Package mailer delivers rendered emails.
package mailer

import (
	"bytes"
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/wneessen/go-mail"
)

// Message is a single outgoing email
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
	HTML    bool
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Logger is the subset of the account logger used here
type Logger interface {
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Validate checks the message has a sender and well formed recipients
func (m Message) Validate() error {
	_, err := m.Msg(time.Time{})
	return err
}

// Msg builds the go-mail message. A zero now leaves the Date header to
// go-mail.
func (m Message) Msg(now time.Time) (*mail.Msg, error) {
	if strings.TrimSpace(m.From) == "" {
		return nil, goerrors.New("message has no sender", goerrors.CategoryValidation)
	}

	if len(m.To) == 0 {
		return nil, goerrors.New("message has no recipients", goerrors.CategoryValidation)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sender").
			WithMetadata(map[string]any{"from": m.From})
	}

	if err := msg.To(m.To...); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid recipient").
			WithMetadata(map[string]any{"to": m.To})
	}

	msg.Subject(m.Subject)

	contentType := mail.TypeTextPlain
	if m.HTML {
		contentType = mail.TypeTextHTML
	}
	msg.SetBodyString(contentType, m.Body)

	if !now.IsZero() {
		msg.SetDateWithValue(now)
	}

	return msg, nil
}

// Bytes encodes the message as RFC 5322 text
func (m Message) Bytes(now time.Time) ([]byte, error) {
	msg, err := m.Msg(now)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode message")
	}
	return buf.Bytes(), nil
}
