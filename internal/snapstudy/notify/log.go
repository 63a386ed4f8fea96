package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes mail to the log instead of sending it. Codes land in
// plain sight, so this must never run outside local development.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) SendOTP(ctx context.Context, email, displayName, code string, login bool) error {
	n.Logger.Info("otp mail (log only)",
		"email", email, "display_name", displayName, "code", code, "login", login)
	return nil
}

func (n *LogNotifier) SendWelcome(ctx context.Context, email, displayName string) error {
	n.Logger.Info("welcome mail (log only)", "email", email, "display_name", displayName)
	return nil
}
