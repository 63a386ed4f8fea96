package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newProfileFixture(t *testing.T) (*ProfileService, *AccountService, *fakeNotifier) {
	t.Helper()

	st := newTestStore(t)
	notifier := &fakeNotifier{}
	accounts := newAccountService(t, st, notifier)
	profile := &ProfileService{Store: st, OTP: accounts.OTP, Notifier: notifier}
	return profile, accounts, notifier
}

func TestUpdateProfilePartial(t *testing.T) {
	ctx := context.Background()
	profile, accounts, notifier := newProfileFixture(t)
	account := registerVerified(t, accounts, notifier, "Ann", "ann@x.com", "Secret1")

	school := "Waterloo"
	updated, err := profile.Update(ctx, account.ID, &school, nil)
	require.NoError(t, err)
	require.Equal(t, "Waterloo", *updated.SchoolName)
	require.Nil(t, updated.PhoneNumber)

	// A later update of the phone leaves the school intact.
	phone := "555-0100"
	updated, err = profile.Update(ctx, account.ID, nil, &phone)
	require.NoError(t, err)
	require.Equal(t, "Waterloo", *updated.SchoolName)
	require.Equal(t, "555-0100", *updated.PhoneNumber)
}

func TestEmailChangeFlow(t *testing.T) {
	ctx := context.Background()
	profile, accounts, notifier := newProfileFixture(t)
	account := registerVerified(t, accounts, notifier, "Ann", "ann@x.com", "Secret1")

	t.Run("wrong password is refused", func(t *testing.T) {
		err := profile.RequestEmailChange(ctx, account.ID, "new@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("taken email is refused", func(t *testing.T) {
		registerVerified(t, accounts, notifier, "Bob", "bob@x.com", "Secret1")
		err := profile.RequestEmailChange(ctx, account.ID, "Bob@X.com", "Secret1")
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("request then confirm switches the email", func(t *testing.T) {
		require.NoError(t, profile.RequestEmailChange(ctx, account.ID, "New@X.com", "Secret1"))

		// The code went to the new address.
		require.Equal(t, "new@x.com", notifier.lastOTPEmail)

		updated, err := profile.ConfirmEmailChange(ctx, account.ID, "New@X.com", notifier.code())
		require.NoError(t, err)
		require.Equal(t, "new@x.com", updated.Email)

		// Login works against the new address only.
		_, err = accounts.Login(ctx, "ann@x.com", "Secret1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = accounts.Login(ctx, "new@x.com", "Secret1")
		require.NoError(t, err)
	})

	t.Run("confirm with a stale code is refused", func(t *testing.T) {
		require.NoError(t, profile.RequestEmailChange(ctx, account.ID, "newer@x.com", "Secret1"))
		code := notifier.code()

		_, err := profile.ConfirmEmailChange(ctx, account.ID, "newer@x.com", "0000")
		if code == "0000" {
			require.NoError(t, err)
			return
		}
		require.ErrorIs(t, err, ErrInvalidOTP)
	})
}
