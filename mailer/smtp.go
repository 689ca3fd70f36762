package mailer

import (
	"context"
	"net"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/wneessen/go-mail"
)

const DefaultSMTPTimeout = 15 * time.Second

// SMTPConfig holds the relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPSender relays messages through an SMTP server. STARTTLS is used
// when offered and PLAIN auth when a username is configured.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(ctx context.Context, msgs ...*mail.Msg) error
	now  func() time.Time
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Port == 0 {
		cfg.Port = 25
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultSMTPTimeout
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid smtp configuration").
			WithMetadata(map[string]any{"host": cfg.Host, "port": cfg.Port})
	}

	return &SMTPSender{
		cfg:  cfg,
		send: client.DialAndSendWithContext,
		now:  time.Now,
	}, nil
}

// Addr returns host:port
func (s *SMTPSender) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := msg.Msg(s.now())
	if err != nil {
		return err
	}

	if err := s.send(ctx, m); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "smtp delivery failed").
			WithMetadata(map[string]any{"addr": s.Addr()})
	}
	return nil
}
