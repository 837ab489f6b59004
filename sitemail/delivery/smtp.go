package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/sparksolution/sitemail/sitemail"
)

// TLSMode selects how the SMTP connection is encrypted.
type TLSMode string

// Supported TLS modes.
const (
	TLSStartTLS TLSMode = "starttls" // plain connect, mandatory STARTTLS upgrade (port 587)
	TLSImplicit TLSMode = "tls"      // TLS from the first byte (port 465)
	TLSNone     TLSMode = "none"     // unencrypted, for local relays only
)

// TLSModes lists the accepted TLSMode values, for flag validation.
var TLSModes = []string{string(TLSStartTLS), string(TLSImplicit), string(TLSNone)}

// SMTPConfig holds the process-wide SMTP transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      TLSMode
	Username string // empty disables SMTP AUTH
	Password string
	Timeout  time.Duration
}

// SMTP delivers messages directly to an SMTP submission server.
type SMTP struct {
	Config SMTPConfig
	Logger zerolog.Logger
}

// NewSMTP returns an SMTP transport for config.
func NewSMTP(config SMTPConfig, logger zerolog.Logger) *SMTP {
	return &SMTP{
		Config: config,
		Logger: logger.With().Str("module", "smtp").Logger(),
	}
}

// Deliver sends msg over a fresh connection.
func (s *SMTP) Deliver(ctx context.Context, msg sitemail.OutboundMessage) error {
	m, err := s.compose(msg)
	if err != nil {
		return sitemail.DeliveryFailed(err)
	}

	client, err := s.client()
	if err != nil {
		return sitemail.DeliveryFailed(err)
	}

	s.Logger.Debug().Str("host", s.Config.Host).Int("port", s.Config.Port).Int("recipients", len(msg.Recipients)).Msg("Delivering message")
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		s.Logger.Err(err).Str("host", s.Config.Host).Msg("Error delivering message")
		return sitemail.DeliveryFailed(err)
	}
	s.Logger.Debug().Msg("Message delivered")
	return nil
}

func (s *SMTP) compose(msg sitemail.OutboundMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.Sender); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(msg.Recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

func (s *SMTP) client() (*mail.Client, error) {
	opts := []mail.Option{mail.WithPort(s.Config.Port)}
	if s.Config.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.Config.Timeout))
	}

	switch s.Config.TLS {
	case TLSImplicit:
		opts = append(opts, mail.WithSSL())
	case TLSNone:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	case TLSStartTLS, "":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		return nil, fmt.Errorf("unknown TLS mode %q", s.Config.TLS)
	}

	if s.Config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.Config.Username),
			mail.WithPassword(s.Config.Password),
		)
	}

	return mail.NewClient(s.Config.Host, opts...)
}
