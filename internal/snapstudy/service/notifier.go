package service

import "context"

// Notifier delivers transactional mail. Implementations live in
// internal/snapstudy/notify; a log-only implementation backs local dev.
type Notifier interface {
	// SendOTP delivers a verification code. login selects the "confirm
	// this sign-in" wording over the "verify your account" wording.
	SendOTP(ctx context.Context, email, displayName, code string, login bool) error

	// SendWelcome greets a newly verified account. Failures are logged
	// and never fail the caller's request.
	SendWelcome(ctx context.Context, email, displayName string) error
}
