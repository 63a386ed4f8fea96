// Package notify delivers transactional mail. MailNotifier speaks SMTP for
// real deployments; LogNotifier prints codes to the log for local dev,
// where nobody wants to stand up a mail server to sign in.
package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// SMTPConfig carries everything needed to reach the mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// MailNotifier sends OTP and welcome mail over SMTP.
type MailNotifier struct {
	client *mail.Client
	from   string
}

// NewMailNotifier dials nothing up front; the client connects per send.
func NewMailNotifier(cfg SMTPConfig) (*MailNotifier, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp client: %w", err)
	}
	return &MailNotifier{client: client, from: cfg.From}, nil
}

func (n *MailNotifier) SendOTP(ctx context.Context, email, displayName, code string, login bool) error {
	subject := "Verify your SnapStudy account"
	action := "verify your account"
	if login {
		subject = "Confirm your SnapStudy sign-in"
		action = "confirm your sign-in"
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nYour verification code is: %s\n\nEnter it to %s. The code expires in 10 minutes.\n\nIf you didn't request this, you can ignore this email.\n",
		displayName, code, action,
	)
	return n.send(ctx, email, subject, body)
}

func (n *MailNotifier) SendWelcome(ctx context.Context, email, displayName string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to SnapStudy! Your account is verified and your starting credits are ready.\n\nUpload your notes and generate your first flashcard set whenever you like.\n",
		displayName,
	)
	return n.send(ctx, email, "Welcome to SnapStudy", body)
}

func (n *MailNotifier) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("notify: from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("notify: to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notify: send mail: %w", err)
	}
	return nil
}
