package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"hooklens/internal/platform/config"
	"hooklens/internal/platform/models"
)

type UserFinder interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails the webhook owner through the configured SMTP relay.
type EmailNotifier struct {
	config config.SMTPConfig
	users  UserFinder
	appURL string
	send   sendMailFunc
}

func NewEmailNotifier(cfg config.SMTPConfig, users UserFinder, appURL string) *EmailNotifier {
	return &EmailNotifier{config: cfg, users: users, appURL: appURL, send: smtp.SendMail}
}

func (e *EmailNotifier) Channel() string { return "email" }

func (e *EmailNotifier) Enabled(n models.Notifications) bool {
	return n.Email && e.config.Host != ""
}

func (e *EmailNotifier) Notify(ctx context.Context, ev Event) error {
	user, err := e.users.GetByID(ctx, ev.Webhook.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("webhook owner not found")
	}

	subject := fmt.Sprintf("[hooklens] %s", summary(ev))
	return e.sendEmail(user.Email, subject, details(ev, e.appURL))
}

func (e *EmailNotifier) sendEmail(to, subject, body string) error {
	from := e.config.FromAddress
	if e.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", e.config.FromName, e.config.FromAddress)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if e.config.Username != "" {
		auth = smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	return e.send(addr, auth, e.config.FromAddress, []string{to}, []byte(msg.String()))
}
