package service

import (
	"context"
	"errors"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store"
	"github.com/yakshxo/snapstudy/pkg/cryptox"
)

var ErrEmailTaken = errors.New("email_taken")

// ProfileService covers self-service account maintenance: profile fields
// and the two-step email change. Changing the login email requires the
// current password up front and an OTP delivered to the NEW address, which
// proves control of both factors before anything is switched.
type ProfileService struct {
	Store    store.Store
	OTP      *OTPIssuer
	Notifier Notifier
}

// Get returns the account for profile reads.
func (s *ProfileService) Get(ctx context.Context, accountID string) (domain.Account, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrAccountNotFound
	}
	return account, err
}

// Update sets the optional profile fields. Nil pointers leave the stored
// value unchanged.
func (s *ProfileService) Update(ctx context.Context, accountID string, schoolName, phoneNumber *string) (domain.Account, error) {
	if err := s.Store.Accounts().UpdateProfile(ctx, accountID, schoolName, phoneNumber); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, err
	}
	return s.Get(ctx, accountID)
}

// RequestEmailChange re-checks the password and sends an OTP to the new
// address. The stored email is untouched until the code comes back.
func (s *ProfileService) RequestEmailChange(ctx context.Context, accountID, newEmail, currentPassword string) error {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}

	if err := cryptox.VerifyPassword(currentPassword, account.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	newEmail = NormalizeEmail(newEmail)
	if newEmail == account.Email {
		return ErrEmailTaken
	}
	if existing, err := s.Store.Accounts().GetAccountByEmail(ctx, newEmail); err == nil && existing.ID != accountID {
		return ErrEmailTaken
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	code, err := s.OTP.Issue(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.Notifier.SendOTP(ctx, newEmail, account.DisplayName, code, false); err != nil {
		return ErrNotificationFailed
	}
	return nil
}

// ConfirmEmailChange validates the code and switches the login email.
func (s *ProfileService) ConfirmEmailChange(ctx context.Context, accountID, newEmail, code string) (domain.Account, error) {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}

	if !s.OTP.Verify(account, code) {
		return domain.Account{}, ErrInvalidOTP
	}
	if err := s.OTP.Clear(ctx, accountID); err != nil {
		return domain.Account{}, err
	}

	newEmail = NormalizeEmail(newEmail)
	if err := s.Store.Accounts().UpdateEmail(ctx, accountID, newEmail); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, err
	}

	return s.Get(ctx, accountID)
}
