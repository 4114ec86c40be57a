package notifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"gopkg.in/gomail.v2"

	"research-notify/internal/observability/logging"
	"research-notify/internal/resilience/circuitbreaker"
)

// ErrMailerUnavailable is returned while the SMTP circuit breaker is open.
var ErrMailerUnavailable = errors.New("smtp relay unavailable: circuit breaker open")

// SMTPConfig contains configuration for the outbound mail relay.
type SMTPConfig struct {
	// Enabled indicates whether email delivery is enabled
	Enabled bool

	Host     string
	Port     int
	Username string
	Password string

	// From is the envelope and header sender address
	From string
	// FromName is the display name on the From header
	FromName string

	// SSL forces implicit TLS (port 465). Otherwise STARTTLS is used when offered.
	SSL bool
	// InsecureSkipVerify disables certificate checks (development relays only)
	InsecureSkipVerify bool

	// Timeout bounds one dial-and-send exchange
	Timeout time.Duration

	// RateLimit is the sustained messages per second; Burst the bucket size
	RateLimit float64
	Burst     int
}

// SMTPMailer sends email through an SMTP relay using gomail.
// Each Send waits for the rate limiter, then runs one dial-and-send exchange
// through the circuit breaker.
type SMTPMailer struct {
	config      SMTPConfig
	dialer      *gomail.Dialer
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker

	// send performs the exchange; replaced in tests.
	send func(m *gomail.Message) error
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	d := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	d.SSL = config.SSL
	if config.InsecureSkipVerify {
		// #nosec G402 -- opt-in for local relays such as MailHog
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: config.Host}
	}

	m := &SMTPMailer{
		config:      config,
		dialer:      d,
		rateLimiter: NewRateLimiter(config.RateLimit, config.Burst),
	}
	cbConfig := circuitbreaker.SMTPConfig()
	cbConfig.IsSuccessful = relayReachable
	m.breaker = circuitbreaker.New(cbConfig)
	m.send = func(msg *gomail.Message) error { return d.DialAndSend(msg) }
	return m
}

func (m *SMTPMailer) buildMessage(msg Message) *gomail.Message {
	gm := gomail.NewMessage()
	if m.config.FromName != "" {
		gm.SetAddressHeader("From", m.config.From, m.config.FromName)
	} else {
		gm.SetHeader("From", m.config.From)
	}
	if msg.ToName != "" {
		gm.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		gm.SetHeader("To", msg.To)
	}
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)
	return gm
}

// Send delivers one message.
//
// Returns:
//   - nil: Relay accepted the message
//   - *SMTPError: Relay rejected it (Temporary reports 4xx)
//   - ErrMailerUnavailable: Circuit breaker open
//   - context errors: Cancelled while waiting for a token or for the relay
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("smtp: empty recipient")
	}

	if _, err := m.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("smtp rate limiter: %w", err)
	}

	gm := m.buildMessage(msg)
	_, err := m.breaker.Execute(func() (interface{}, error) {
		return nil, m.exchange(ctx, gm)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrMailerUnavailable
	}
	if err != nil {
		slog.Warn("smtp send failed",
			slog.String("request_id", logging.RequestIDFromContext(ctx)),
			slog.String("host", m.config.Host),
			slog.Any("error", err))
		return err
	}
	return nil
}

// exchange runs the blocking gomail call so the caller can stop waiting on
// cancellation. A message already handed to the relay may still be delivered.
func (m *SMTPMailer) exchange(ctx context.Context, gm *gomail.Message) error {
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- m.send(gm) }()

	select {
	case err := <-done:
		return classifySMTPError(err)
	case <-ctx.Done():
		return fmt.Errorf("smtp exchange: %w", ctx.Err())
	}
}

// CircuitOpen reports whether the relay is currently being short-circuited.
func (m *SMTPMailer) CircuitOpen() bool {
	return m.breaker.IsOpen()
}

// relayReachable treats permanent rejections (5xx replies for one address)
// as proof the relay is up, so they do not count toward tripping the breaker.
func relayReachable(err error) bool {
	if err == nil {
		return true
	}
	var smtpErr *SMTPError
	return errors.As(err, &smtpErr) && !smtpErr.Temporary()
}
