package utils

import (
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"campuscms/config"
)

// ErrTransportUnavailable is returned when the mail transport cannot be
// reached at all. A send that fails this way leaves the campaign in draft so
// the whole send can be retried.
var ErrTransportUnavailable = errors.New("mail transport unavailable")

// Email is a single outgoing message.
type Email struct {
	From      string
	FromName  string
	To        string
	ToName    string
	Subject   string
	Body      string
	MessageID string
}

// MailTransport delivers a single email. Implementations return the provider
// message ID when one is available.
type MailTransport interface {
	Send(email Email) (string, error)
	Ping() error
}

// SMTPMailer sends mail over SMTP using gomail.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) dialer() *gomail.Dialer {
	return gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
}

// Send delivers one message. Each call dials its own connection; the
// dispatcher bounds how many run at once.
func (m *SMTPMailer) Send(email Email) (string, error) {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", email.From, email.FromName)
	msg.SetAddressHeader("To", email.To, email.ToName)
	msg.SetHeader("Subject", email.Subject)
	if email.MessageID != "" {
		msg.SetHeader("X-Entity-Ref-ID", email.MessageID)
	}
	msg.SetBody("text/html", email.Body)

	if err := m.dialer().DialAndSend(msg); err != nil {
		return "", fmt.Errorf("smtp send to %s failed: %w", email.To, err)
	}
	return email.MessageID, nil
}

// Ping dials the SMTP server and disconnects, verifying the transport is
// reachable before a batch starts.
func (m *SMTPMailer) Ping() error {
	closer, err := m.dialer().Dial()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return closer.Close()
}
