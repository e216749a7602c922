// Package mailer renders and delivers transactional e-mail.
package mailer

import (
	"context"
	"fmt"

	"github.com/go-gomail/gomail"
)

// Message is a rendered HTML e-mail.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPOptions describes the outgoing mail server.
type SMTPOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// dialAndSend is swapped in tests.
var dialAndSend = func(d *gomail.Dialer, m ...*gomail.Message) error {
	return d.DialAndSend(m...)
}

// SMTPSender delivers messages over SMTP, one connection per message.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(opts SMTPOptions) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(opts.Host, opts.Port, opts.User, opts.Password),
		from:   opts.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail %q has no recipients", msg.Subject)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := dialAndSend(s.dialer, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
