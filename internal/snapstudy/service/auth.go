package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store"
	"github.com/yakshxo/snapstudy/pkg/cryptox"
	"github.com/yakshxo/snapstudy/pkg/idx"
	"github.com/yakshxo/snapstudy/pkg/slogx"
)

// DefaultStartingCredits is granted to every new account on registration.
const DefaultStartingCredits = 5

var (
	ErrAccountExists      = errors.New("account_exists")
	ErrAccountNotFound    = errors.New("account_not_found")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrNotVerified        = errors.New("not_verified")
	ErrInvalidOTP         = errors.New("invalid_otp")
	ErrMustVerifyFirst    = errors.New("must_verify_first")
	ErrNotificationFailed = errors.New("notification_failed")
)

// Challenge is the pending-OTP state returned by Register, Login and
// ResendChallenge. The code itself travels only over the Notifier.
type Challenge struct {
	Email string
}

// Session is a completed challenge: a signed token plus the account it
// belongs to.
type Session struct {
	Token   string
	Account domain.Account
}

// AccountService drives the account state machine: unverified on
// registration, verified after the first completed OTP challenge, and a
// fresh challenge gating every login after that.
type AccountService struct {
	Store    store.Store
	OTP      *OTPIssuer
	Tokens   *TokenService
	Notifier Notifier

	// StartingCredits granted on signup; defaults to
	// DefaultStartingCredits when zero.
	StartingCredits int64

	// UnlimitedEmails are exempt from credit debits entirely (internal
	// and demo accounts). Keys must be lowercased.
	UnlimitedEmails map[string]struct{}
}

func (s *AccountService) startingCredits() int64 {
	if s.StartingCredits > 0 {
		return s.StartingCredits
	}
	return DefaultStartingCredits
}

// NormalizeEmail lowercases and trims an address so the same mailbox can
// never own two accounts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and issues its first challenge.
// Re-registering an email that never finished verification overwrites the
// name and password and issues a fresh code instead of failing, so an
// abandoned signup never wedges the address.
func (s *AccountService) Register(ctx context.Context, displayName, email, password string) (Challenge, error) {
	email = NormalizeEmail(email)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return Challenge{}, fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	switch {
	case err == nil && existing.Verified():
		return Challenge{}, ErrAccountExists

	case err == nil:
		// Unverified leftover from an earlier attempt: take it over.
		if err := s.Store.Accounts().UpdateRegistration(ctx, existing.ID, displayName, hash); err != nil {
			return Challenge{}, err
		}
		return s.issueChallenge(ctx, existing.ID, email, displayName, false)

	case errors.Is(err, store.ErrNotFound):
		_, unlimited := s.UnlimitedEmails[email]
		account := domain.Account{
			ID:                  string(idx.New()),
			Email:               email,
			DisplayName:         displayName,
			PasswordHash:        hash,
			CreditBalance:       s.startingCredits(),
			HasUnlimitedCredits: unlimited,
		}
		if err := s.Store.Accounts().CreateAccount(ctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return Challenge{}, ErrAccountExists
			}
			return Challenge{}, err
		}
		return s.issueChallenge(ctx, account.ID, email, displayName, false)

	default:
		return Challenge{}, err
	}
}

// Login checks the password and, when it matches a verified account,
// issues a sign-in challenge. No session exists until the challenge is
// completed.
func (s *AccountService) Login(ctx context.Context, email, password string) (Challenge, error) {
	email = NormalizeEmail(email)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Challenge{}, ErrInvalidCredentials
	}
	if err != nil {
		return Challenge{}, err
	}

	if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
		return Challenge{}, ErrInvalidCredentials
	}

	if !account.Verified() {
		// Password was right, but the signup challenge was never
		// completed. The caller should route back to verification.
		return Challenge{}, ErrNotVerified
	}

	return s.issueChallenge(ctx, account.ID, account.Email, account.DisplayName, true)
}

// CompleteChallenge validates the submitted code and mints a session.
// Verification is stamped on every success; for an already-verified login
// that stamp is a no-op. The used code is always cleared so it cannot be
// replayed even inside its validity window.
func (s *AccountService) CompleteChallenge(ctx context.Context, email, code string, login bool) (Session, error) {
	email = NormalizeEmail(email)
	l := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrAccountNotFound
	}
	if err != nil {
		return Session{}, err
	}

	if !s.OTP.Verify(account, code) {
		return Session{}, ErrInvalidOTP
	}

	firstVerification := !account.Verified()

	if err := s.OTP.Clear(ctx, account.ID); err != nil {
		return Session{}, err
	}
	if err := s.Store.Accounts().MarkVerified(ctx, account.ID); err != nil {
		return Session{}, err
	}

	// Reload so the caller sees verified_at and the cleared code.
	account, err = s.Store.Accounts().GetAccountByID(ctx, account.ID)
	if err != nil {
		return Session{}, err
	}

	token, err := s.Tokens.IssueSession(account)
	if err != nil {
		return Session{}, err
	}

	if firstVerification && !login {
		if err := s.Notifier.SendWelcome(ctx, account.Email, account.DisplayName); err != nil {
			l.Warn("welcome mail failed", "error", err, "email", account.Email)
		}
	}

	return Session{Token: token, Account: account}, nil
}

// ResendChallenge issues a replacement code. A login resend requires the
// account to be verified already; a signup resend requires it not to be.
func (s *AccountService) ResendChallenge(ctx context.Context, email string, login bool) (Challenge, error) {
	email = NormalizeEmail(email)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Challenge{}, ErrAccountNotFound
	}
	if err != nil {
		return Challenge{}, err
	}

	if login && !account.Verified() {
		return Challenge{}, ErrMustVerifyFirst
	}

	return s.issueChallenge(ctx, account.ID, account.Email, account.DisplayName, login)
}

// GetAccount resolves the authenticated account for /me style reads.
func (s *AccountService) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrAccountNotFound
	}
	return account, err
}

// issueChallenge mints, stores and delivers a code. Delivery failure fails
// the request: a challenge the user can never receive is worse than an
// error they can retry.
func (s *AccountService) issueChallenge(ctx context.Context, accountID, email, displayName string, login bool) (Challenge, error) {
	code, err := s.OTP.Issue(ctx, accountID)
	if err != nil {
		return Challenge{}, err
	}
	if err := s.Notifier.SendOTP(ctx, email, displayName, code, login); err != nil {
		slogx.FromContext(ctx).Error("otp mail failed", "error", err, "email", email)
		return Challenge{}, ErrNotificationFailed
	}
	return Challenge{Email: email}, nil
}
