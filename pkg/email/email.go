package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/expirycare/expirycare/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Sender delivers a ready-made email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// SMTPSender sends mail over SMTP. A circuit breaker sits in front of
// the provider so that an outage short-circuits quickly instead of
// stalling a whole reminder batch on timeouts.
type SMTPSender struct {
	host     string
	port     string
	from     string
	password string
	breaker  *gobreaker.CircuitBreaker
}

// NewSMTPSender creates an SMTP-backed Sender from config.
func NewSMTPSender(cfg *config.Config) *SMTPSender {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "smtp",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Email circuit breaker state changed")
		},
	})

	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPSender,
		password: cfg.SMTPPassword,
		breaker:  breaker,
	}
}

// Send delivers a multipart/alternative message with both HTML and plain
// text bodies.
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	const boundary = "expirycare-alt"

	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=" + boundary + "\r\n" +
		"\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + textBody + "\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" + htmlBody + "\r\n" +
		"--" + boundary + "--\r\n")

	auth := smtp.PlainAuth("", s.from, s.password, s.host)
	address := s.host + ":" + s.port

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, smtp.SendMail(address, auth, s.from, []string{to}, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %v", to, err)
	}
	return nil
}
