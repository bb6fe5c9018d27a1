// Package mailer dispatches transactional email over SMTP.
//
// Delivery is best-effort everywhere: a failed send is logged and counted
// but never fails the operation that triggered it.
package mailer

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/codeaura/invoicer/internal/idgen"
)

// Message is a single outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender delivers a message and returns a message id for logging.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SMTPSender delivers mail through an SMTP relay via gomail.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender builds a sender for the given relay. from is the
// display address stamped on every outbound message.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send delivers msg through the relay. gomail dials per call, so the
// context deadline is honored only between messages, not mid-dial.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	messageID := idgen.Hex(12)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@invoicer>", messageID))

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return messageID, nil
}
