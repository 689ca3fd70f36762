package mailer

import (
	"context"
	"strings"
	"sync"
)

// LogSender writes messages to the logger instead of delivering them.
// Sent messages are kept for inspection.
type LogSender struct {
	logger Logger

	mu   sync.Mutex
	sent []Message
}

func NewLogSender(logger Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := msg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("mail", "to", strings.Join(msg.To, ","), "subject", msg.Subject)
		s.logger.Debug("mail body", "body", msg.Body)
	}
	return nil
}

// Sent returns a copy of the delivered messages
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
