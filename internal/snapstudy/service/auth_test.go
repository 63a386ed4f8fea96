package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterVerifyFlow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	svc := newAccountService(t, st, notifier)

	challenge, err := svc.Register(ctx, "Ann", "Ann@X.com", "Secret1")
	require.NoError(t, err)
	require.Equal(t, "ann@x.com", challenge.Email)
	require.NotEmpty(t, notifier.code())

	// Account exists but is not verified yet, and holds starting credits.
	account, err := st.Accounts().GetAccountByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	require.False(t, account.Verified())
	require.EqualValues(t, DefaultStartingCredits, account.CreditBalance)

	// Wrong code is rejected without state change.
	wrong := "0000"
	if notifier.code() == wrong {
		wrong = "0001"
	}
	_, err = svc.CompleteChallenge(ctx, "ann@x.com", wrong, false)
	require.ErrorIs(t, err, ErrInvalidOTP)

	// Right code verifies, mints a token and sends the welcome mail.
	session, err := svc.CompleteChallenge(ctx, "ann@x.com", notifier.code(), false)
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.True(t, session.Account.Verified())
	require.Nil(t, session.Account.OTPCode)
	require.Equal(t, 1, notifier.welcomeCount())

	// The consumed code cannot be replayed.
	_, err = svc.CompleteChallenge(ctx, "ann@x.com", notifier.code(), false)
	require.ErrorIs(t, err, ErrInvalidOTP)
}

func TestRegisterDuplicateVerifiedEmail(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	svc := newAccountService(t, st, notifier)

	registerVerified(t, svc, notifier, "Ann", "ann@x.com", "Secret1")

	_, err := svc.Register(ctx, "Imposter", "ann@x.com", "Other123")
	require.ErrorIs(t, err, ErrAccountExists)
}

func TestRegisterUnverifiedEmailIsTakenOver(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	svc := newAccountService(t, st, notifier)

	_, err := svc.Register(ctx, "Ann", "ann@x.com", "Secret1")
	require.NoError(t, err)
	firstCode := notifier.code()

	// Second attempt overwrites name and password and issues a new code.
	_, err = svc.Register(ctx, "Ann Again", "ann@x.com", "Fresh456")
	require.NoError(t, err)

	account, err := st.Accounts().GetAccountByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	require.Equal(t, "Ann Again", account.DisplayName)

	if notifier.code() != firstCode {
		require.False(t, svc.OTP.Verify(account, firstCode))
	}

	session, err := svc.CompleteChallenge(ctx, "ann@x.com", notifier.code(), false)
	require.NoError(t, err)

	// New password works for login, old one does not.
	_, err = svc.Login(ctx, "ann@x.com", "Secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ann@x.com", "Fresh456")
	require.NoError(t, err)
	_ = session
}

func TestLoginIsTwoFactor(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	svc := newAccountService(t, st, notifier)

	registerVerified(t, svc, notifier, "Ann", "ann@x.com", "Secret1")

	// Correct password yields a challenge, never an immediate token.
	challenge, err := svc.Login(ctx, "ann@x.com", "Secret1")
	require.NoError(t, err)
	require.Equal(t, "ann@x.com", challenge.Email)
	require.True(t, notifier.lastOTPLogin)

	session, err := svc.CompleteChallenge(ctx, "ann@x.com", notifier.code(), true)
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)

	// Login OTP on an already-verified account does not send a second
	// welcome mail.
	require.Equal(t, 1, notifier.welcomeCount())
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	svc := newAccountService(t, st, notifier)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "ghost@x.com", "Secret1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	_, err := svc.Register(ctx, "Ann", "ann@x.com", "Secret1")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "ann@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unverified account with right password", func(t *testing.T) {
		before := notifier.code()
		_, err := svc.Login(ctx, "ann@x.com", "Secret1")
		require.ErrorIs(t, err, ErrNotVerified)
		// No fresh OTP was issued on the refused login.
		require.Equal(t, before, notifier.code())
	})
}

func TestResendChallenge(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	svc := newAccountService(t, st, notifier)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.ResendChallenge(ctx, "ghost@x.com", false)
		require.ErrorIs(t, err, ErrAccountNotFound)
	})

	_, err := svc.Register(ctx, "Ann", "ann@x.com", "Secret1")
	require.NoError(t, err)

	t.Run("login resend requires verified account", func(t *testing.T) {
		_, err := svc.ResendChallenge(ctx, "ann@x.com", true)
		require.ErrorIs(t, err, ErrMustVerifyFirst)
	})

	t.Run("signup resend reissues and new code verifies", func(t *testing.T) {
		_, err := svc.ResendChallenge(ctx, "ann@x.com", false)
		require.NoError(t, err)

		session, err := svc.CompleteChallenge(ctx, "ann@x.com", notifier.code(), false)
		require.NoError(t, err)
		require.True(t, session.Account.Verified())
	})
}

func TestRegisterUnlimitedAllowList(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	notifier := &fakeNotifier{}
	svc := newAccountService(t, st, notifier)

	_, err := svc.Register(ctx, "Dev", "dev@snapstudy.app", "Secret1")
	require.NoError(t, err)

	account, err := st.Accounts().GetAccountByEmail(ctx, "dev@snapstudy.app")
	require.NoError(t, err)
	require.True(t, account.HasUnlimitedCredits)
}

func TestRegisterNotifierFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	notifier := &fakeNotifier{failSend: true}
	svc := newAccountService(t, st, notifier)

	_, err := svc.Register(ctx, "Ann", "ann@x.com", "Secret1")
	require.ErrorIs(t, err, ErrNotificationFailed)
}
