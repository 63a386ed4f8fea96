package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store"
	"github.com/yakshxo/snapstudy/pkg/slogx"
)

var (
	ErrUnknownPackage      = errors.New("unknown_package")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrNotSettled          = errors.New("payment_not_settled")
	ErrAccountMismatch     = errors.New("payment_account_mismatch")
	ErrInvalidSignature    = errors.New("invalid_webhook_signature")
)

// PaymentProvider is the provider-neutral slice of a payment processor the
// service needs. The Stripe-backed implementation lives in
// internal/snapstudy/payment.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (domain.CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, p IntentParams) (domain.PaymentIntent, error)

	// GetPaymentIntent / GetCheckoutSession fetch the provider's view of a
	// transaction, including the account binding from its metadata.
	GetPaymentIntent(ctx context.Context, id string) (domain.Transaction, error)
	GetCheckoutSession(ctx context.Context, id string) (domain.Transaction, error)

	// VerifyWebhook checks the payload signature and decodes the event.
	VerifyWebhook(payload []byte, signature string) (domain.WebhookEvent, error)
}

// CheckoutParams describe a hosted-checkout purchase of one credit package.
type CheckoutParams struct {
	AccountID   string
	Email       string
	PackageID   string
	Name        string
	Credits     int64
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// IntentParams describe a client-confirmable purchase of one credit package.
type IntentParams struct {
	AccountID   string
	Email       string
	PackageID   string
	Credits     int64
	AmountCents int64
	Currency    string
}

// ConfirmResult reports a credit grant. AlreadyProcessed means the
// transaction had been granted before and nothing changed this time.
type ConfirmResult struct {
	TransactionID    string
	CreditsAdded     int64
	NewBalance       int64
	AlreadyProcessed bool
}

// creditPackages is the fixed catalog. Prices are CAD; bonus credits are
// baked into the headline Credits figure.
var creditPackages = []domain.CreditPackage{
	{ID: "starter", Name: "Starter Pack", Credits: 5, Price: 1.00, PricePerCredit: 0.20, BaseCredits: 5, BonusCredits: 0, Currency: "cad"},
	{ID: "basic", Name: "Basic Pack", Credits: 30, Price: 5.00, PricePerCredit: 0.17, BaseCredits: 25, BonusCredits: 5, Currency: "cad"},
	{ID: "pro", Name: "Pro Pack", Credits: 75, Price: 10.00, PricePerCredit: 0.13, BaseCredits: 50, BonusCredits: 25, Currency: "cad", Popular: true},
	{ID: "premium", Name: "Premium Pack", Credits: 175, Price: 25.00, PricePerCredit: 0.14, BaseCredits: 125, BonusCredits: 50, Currency: "cad"},
}

// Packages returns the purchasable credit packages.
func Packages() []domain.CreditPackage {
	out := make([]domain.CreditPackage, len(creditPackages))
	copy(out, creditPackages)
	return out
}

// PackageByID looks up a catalog entry.
func PackageByID(id string) (domain.CreditPackage, error) {
	for _, p := range creditPackages {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.CreditPackage{}, ErrUnknownPackage
}

// PaymentService bridges the payment provider to the credit ledger. Every
// grant is keyed by the provider transaction id, so the interactive confirm
// path and the webhook path can both fire for the same purchase and the
// credits land exactly once.
type PaymentService struct {
	Store    store.Store
	Provider PaymentProvider

	// SuccessURL / CancelURL are where hosted checkout redirects.
	SuccessURL string
	CancelURL  string
}

// CreateCheckoutSession starts a hosted-checkout purchase of the package.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, account domain.Account, packageID string) (domain.CheckoutSession, error) {
	pkg, err := PackageByID(packageID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	return s.Provider.CreateCheckoutSession(ctx, CheckoutParams{
		AccountID:   account.ID,
		Email:       account.Email,
		PackageID:   pkg.ID,
		Name:        pkg.Name,
		Credits:     pkg.Credits,
		AmountCents: int64(pkg.Price * 100),
		Currency:    pkg.Currency,
		SuccessURL:  s.SuccessURL,
		CancelURL:   s.CancelURL,
	})
}

// CreatePaymentIntent starts a client-confirmable purchase of the package.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, account domain.Account, packageID string) (domain.PaymentIntent, error) {
	pkg, err := PackageByID(packageID)
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	return s.Provider.CreatePaymentIntent(ctx, IntentParams{
		AccountID:   account.ID,
		Email:       account.Email,
		PackageID:   pkg.ID,
		Credits:     pkg.Credits,
		AmountCents: int64(pkg.Price * 100),
		Currency:    pkg.Currency,
	})
}

// ConfirmPayment settles an interactive payment-intent purchase. The
// provider is the source of truth for settlement and for which account the
// intent was created for.
func (s *PaymentService) ConfirmPayment(ctx context.Context, accountID, paymentIntentID string) (ConfirmResult, error) {
	txn, err := s.Provider.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, err)
	}
	return s.settle(ctx, accountID, txn)
}

// CheckoutSuccess settles a hosted-checkout purchase after the redirect.
func (s *PaymentService) CheckoutSuccess(ctx context.Context, accountID, sessionID string) (ConfirmResult, error) {
	txn, err := s.Provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, err)
	}
	return s.settle(ctx, accountID, txn)
}

// HandleWebhook processes a signature-verified provider event. Redeliveries
// are safe: the grant is idempotent on the transaction id.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	l := slogx.FromContext(ctx)

	event, err := s.Provider.VerifyWebhook(payload, signature)
	if err != nil {
		return ErrInvalidSignature
	}

	switch event.Type {
	case "payment_intent.succeeded", "checkout.session.completed":
		txn := event.Transaction
		if txn.AccountID == "" || txn.Credits <= 0 {
			l.Warn("webhook transaction missing metadata", "event_id", event.ID, "transaction_id", txn.ID)
			return nil
		}
		res, err := s.grant(ctx, txn)
		if err != nil {
			return err
		}
		if res.AlreadyProcessed {
			l.Info("webhook redelivery skipped", "transaction_id", txn.ID)
		} else {
			l.Info("credits granted via webhook",
				"transaction_id", txn.ID, "account_id", txn.AccountID, "credits", txn.Credits)
		}
		return nil

	case "payment_intent.payment_failed":
		l.Warn("payment failed", "event_id", event.ID, "transaction_id", event.Transaction.ID)
		return nil

	default:
		l.Debug("ignoring webhook event", "type", event.Type)
		return nil
	}
}

// settle validates a provider transaction against the calling account and
// grants its credits.
func (s *PaymentService) settle(ctx context.Context, accountID string, txn domain.Transaction) (ConfirmResult, error) {
	if !txn.Settled {
		return ConfirmResult{}, ErrNotSettled
	}
	if txn.AccountID != accountID {
		return ConfirmResult{}, ErrAccountMismatch
	}
	if txn.Credits <= 0 {
		return ConfirmResult{}, fmt.Errorf("transaction %s carries no credits", txn.ID)
	}
	return s.grant(ctx, txn)
}

// grant records the transaction and adds its credits in one transaction.
// The processed-payments primary key turns a second grant for the same
// transaction id into a clean AlreadyProcessed result.
func (s *PaymentService) grant(ctx context.Context, txn domain.Transaction) (ConfirmResult, error) {
	var balance int64
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.ProcessedPayments().MarkProcessed(ctx, txn.ID, txn.AccountID, txn.Credits); err != nil {
			return err
		}
		var err error
		balance, err = tx.Accounts().AddCredits(ctx, txn.AccountID, txn.Credits)
		return err
	})

	if errors.Is(err, store.ErrAlreadyExists) {
		account, aerr := s.Store.Accounts().GetAccountByID(ctx, txn.AccountID)
		if aerr != nil {
			return ConfirmResult{}, aerr
		}
		return ConfirmResult{
			TransactionID:    txn.ID,
			CreditsAdded:     txn.Credits,
			NewBalance:       account.CreditBalance,
			AlreadyProcessed: true,
		}, nil
	}
	if err != nil {
		return ConfirmResult{}, err
	}

	return ConfirmResult{
		TransactionID: txn.ID,
		CreditsAdded:  txn.Credits,
		NewBalance:    balance,
	}, nil
}
