package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
)

func newPaymentFixture(t *testing.T) (*PaymentService, *CreditService, domain.Account) {
	t.Helper()

	st := newTestStore(t)
	credits := &CreditService{Store: st}
	account := newCreditAccount(t, credits, 5, false)

	svc := &PaymentService{
		Store: st,
		Provider: &fakeProvider{
			transactions: map[string]domain.Transaction{},
			validSig:     "sig-ok",
		},
	}
	return svc, credits, account
}

func (s *PaymentService) fake() *fakeProvider { return s.Provider.(*fakeProvider) }

func TestPackagesCatalog(t *testing.T) {
	packages := Packages()
	require.Len(t, packages, 4)

	pro, err := PackageByID("pro")
	require.NoError(t, err)
	require.True(t, pro.Popular)
	require.EqualValues(t, 75, pro.Credits)

	_, err = PackageByID("mystery")
	require.ErrorIs(t, err, ErrUnknownPackage)
}

func TestConfirmPaymentAddsCreditsOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, account := newPaymentFixture(t)

	svc.fake().transactions["pi_1"] = domain.Transaction{
		ID: "pi_1", Kind: domain.TxnPaymentIntent, Settled: true,
		AccountID: account.ID, Credits: 30,
	}

	result, err := svc.ConfirmPayment(ctx, account.ID, "pi_1")
	require.NoError(t, err)
	require.False(t, result.AlreadyProcessed)
	require.EqualValues(t, 30, result.CreditsAdded)
	require.EqualValues(t, 35, result.NewBalance)

	// The user retries the confirm call; the balance does not move.
	again, err := svc.ConfirmPayment(ctx, account.ID, "pi_1")
	require.NoError(t, err)
	require.True(t, again.AlreadyProcessed)
	require.EqualValues(t, 35, again.NewBalance)
}

func TestConfirmPaymentFailures(t *testing.T) {
	ctx := context.Background()
	svc, _, account := newPaymentFixture(t)

	svc.fake().transactions["pi_pending"] = domain.Transaction{
		ID: "pi_pending", Settled: false, AccountID: account.ID, Credits: 30,
	}
	svc.fake().transactions["pi_other"] = domain.Transaction{
		ID: "pi_other", Settled: true, AccountID: "someone-else", Credits: 30,
	}

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := svc.ConfirmPayment(ctx, account.ID, "pi_ghost")
		require.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("not settled", func(t *testing.T) {
		_, err := svc.ConfirmPayment(ctx, account.ID, "pi_pending")
		require.ErrorIs(t, err, ErrNotSettled)
	})

	t.Run("account mismatch", func(t *testing.T) {
		_, err := svc.ConfirmPayment(ctx, account.ID, "pi_other")
		require.ErrorIs(t, err, ErrAccountMismatch)
	})

	// None of the failures touched the balance.
	stored, err := svc.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, stored.CreditBalance)
}

func TestCheckoutSuccessGrantsCredits(t *testing.T) {
	ctx := context.Background()
	svc, _, account := newPaymentFixture(t)

	svc.fake().transactions["cs_1"] = domain.Transaction{
		ID: "cs_1", Kind: domain.TxnCheckoutSession, Settled: true,
		AccountID: account.ID, Credits: 5,
	}

	result, err := svc.CheckoutSuccess(ctx, account.ID, "cs_1")
	require.NoError(t, err)
	require.EqualValues(t, 10, result.NewBalance)
}

func TestWebhookRedeliveryCreditsOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, account := newPaymentFixture(t)

	svc.fake().event = domain.WebhookEvent{
		ID:   "evt_1",
		Type: "payment_intent.succeeded",
		Transaction: domain.Transaction{
			ID: "pi_1", Settled: true, AccountID: account.ID, Credits: 75,
		},
	}

	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig-ok"))
	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig-ok"))

	stored, err := svc.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 80, stored.CreditBalance)
}

func TestWebhookThenConfirmCreditsOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, account := newPaymentFixture(t)

	txn := domain.Transaction{
		ID: "pi_1", Settled: true, AccountID: account.ID, Credits: 30,
	}
	svc.fake().transactions["pi_1"] = txn
	svc.fake().event = domain.WebhookEvent{
		ID: "evt_1", Type: "payment_intent.succeeded", Transaction: txn,
	}

	// Webhook lands first, then the client's interactive confirm races in.
	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig-ok"))

	result, err := svc.ConfirmPayment(ctx, account.ID, "pi_1")
	require.NoError(t, err)
	require.True(t, result.AlreadyProcessed)
	require.EqualValues(t, 35, result.NewBalance)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	svc, _, account := newPaymentFixture(t)

	svc.fake().event = domain.WebhookEvent{
		Type: "payment_intent.succeeded",
		Transaction: domain.Transaction{
			ID: "pi_1", Settled: true, AccountID: account.ID, Credits: 30,
		},
	}

	err := svc.HandleWebhook(ctx, []byte(`{}`), "sig-forged")
	require.ErrorIs(t, err, ErrInvalidSignature)

	stored, err := svc.Store.Accounts().GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, stored.CreditBalance)
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newPaymentFixture(t)

	svc.fake().event = domain.WebhookEvent{ID: "evt_1", Type: "customer.created"}
	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig-ok"))
}
