package notify

import (
	"context"
	"errors"

	"gopkg.in/gomail.v2"
)

// EmailSender delivers mail over an SMTP connection.
type EmailSender struct {
	from   string
	dialer *gomail.Dialer
}

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		from:   from,
		dialer: gomail.NewDialer(host, port, user, password),
	}
}

func (s *EmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return errors.New("notify: empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	return s.dialer.DialAndSend(m)
}

// SendSms is unsupported on the SMTP adapter.
func (s *EmailSender) SendSms(ctx context.Context, to, body string) error {
	return errors.New("notify: sms not supported by email sender")
}
