package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
	"golang.org/x/text/language"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailNotifier sends reminders over SMTP.
type EmailNotifier struct {
	cfg    EmailConfig
	locale language.Tag
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewEmailNotifier(cfg EmailConfig, locale language.Tag) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		locale: locale,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Notify(ctx context.Context, r Reminder) error {
	if r.Email == "" {
		return errors.New("recipient has no email address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = []string{r.Email}
	e.Subject = Subject(r)
	e.Text = []byte(Body(r, n.locale))

	addr := n.cfg.Host + ":" + strconv.Itoa(n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	if err := n.send(e, addr, auth); err != nil {
		return fmt.Errorf("send email to %s: %w", r.Email, err)
	}
	return nil
}
