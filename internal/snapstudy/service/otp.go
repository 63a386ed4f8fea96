package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store"
	"github.com/yakshxo/snapstudy/pkg/cryptox"
)

// DefaultOTPTTL is how long an issued challenge code stays valid.
const DefaultOTPTTL = 10 * time.Minute

// OTPIssuer manages the single outstanding challenge code per account.
// Issuing a new code supersedes any previous one.
type OTPIssuer struct {
	Store store.Store
	TTL   time.Duration

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (o *OTPIssuer) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *OTPIssuer) ttl() time.Duration {
	if o.TTL > 0 {
		return o.TTL
	}
	return DefaultOTPTTL
}

// Issue generates a fresh code, persists it with its expiry, and returns
// the plaintext code for delivery.
func (o *OTPIssuer) Issue(ctx context.Context, accountID string) (string, error) {
	code, err := cryptox.GenerateOTP()
	if err != nil {
		return "", err
	}
	expiresAt := o.now().Add(o.ttl())
	if err := o.Store.Accounts().SetOTP(ctx, accountID, code, expiresAt); err != nil {
		return "", err
	}
	return code, nil
}

// Verify reports whether submitted matches the account's outstanding code
// and the code has not expired. It does not mutate anything; callers clear
// the code and stamp verification separately so each concern stays explicit.
func (o *OTPIssuer) Verify(a domain.Account, submitted string) bool {
	if a.OTPCode == nil || a.OTPExpiresAt == nil {
		return false
	}
	if !o.now().Before(*a.OTPExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*a.OTPCode), []byte(submitted)) == 1
}

// Clear removes the outstanding code so it can never be replayed.
func (o *OTPIssuer) Clear(ctx context.Context, accountID string) error {
	return o.Store.Accounts().ClearOTP(ctx, accountID)
}
