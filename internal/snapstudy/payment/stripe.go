// Package payment adapts Stripe to the provider-neutral interface the
// payment service consumes. Account binding and credit quantity ride in the
// transaction metadata, so the provider object is self-describing when it
// comes back via polling or webhook.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/internal/snapstudy/service"
)

const (
	metaAccountID = "account_id"
	metaCredits   = "credits"
	metaPackageID = "package_id"
)

// StripeProvider implements service.PaymentProvider against the Stripe API.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider builds a provider from the secret API key and the
// webhook signing secret.
func NewStripeProvider(apiKey, webhookSecret string) *StripeProvider {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeProvider{api: api, webhookSecret: webhookSecret}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in service.CheckoutParams) (domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(in.Email),
		SuccessURL:    stripe.String(in.SuccessURL),
		CancelURL:     stripe.String(in.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(in.Currency),
				UnitAmount: stripe.Int64(in.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(in.Name),
					Description: stripe.String(fmt.Sprintf("%d generation credits", in.Credits)),
				},
			},
		}},
	}
	params.Context = ctx
	params.AddMetadata(metaAccountID, in.AccountID)
	params.AddMetadata(metaCredits, strconv.FormatInt(in.Credits, 10))
	params.AddMetadata(metaPackageID, in.PackageID)

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return domain.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, in service.IntentParams) (domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(in.AmountCents),
		Currency:     stripe.String(in.Currency),
		ReceiptEmail: stripe.String(in.Email),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(metaAccountID, in.AccountID)
	params.AddMetadata(metaCredits, strconv.FormatInt(in.Credits, 10))
	params.AddMetadata(metaPackageID, in.PackageID)

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return domain.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret, Amount: pi.Amount}, nil
}

func (p *StripeProvider) GetPaymentIntent(ctx context.Context, id string) (domain.Transaction, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("stripe: get payment intent: %w", err)
	}
	return intentTransaction(pi), nil
}

func (p *StripeProvider) GetCheckoutSession(ctx context.Context, id string) (domain.Transaction, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("stripe: get checkout session: %w", err)
	}
	return sessionTransaction(sess), nil
}

// VerifyWebhook checks the Stripe-Signature header against the payload and
// decodes the embedded object into a provider-neutral transaction.
func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (domain.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return domain.WebhookEvent{}, fmt.Errorf("stripe: verify webhook: %w", err)
	}

	out := domain.WebhookEvent{ID: event.ID, Type: string(event.Type)}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return domain.WebhookEvent{}, fmt.Errorf("stripe: decode payment intent event: %w", err)
		}
		out.Transaction = intentTransaction(&pi)

	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return domain.WebhookEvent{}, fmt.Errorf("stripe: decode checkout session event: %w", err)
		}
		out.Transaction = sessionTransaction(&sess)
	}

	return out, nil
}

func intentTransaction(pi *stripe.PaymentIntent) domain.Transaction {
	return domain.Transaction{
		ID:        pi.ID,
		Kind:      domain.TxnPaymentIntent,
		Settled:   pi.Status == stripe.PaymentIntentStatusSucceeded,
		AccountID: pi.Metadata[metaAccountID],
		Credits:   parseCredits(pi.Metadata[metaCredits]),
	}
}

func sessionTransaction(sess *stripe.CheckoutSession) domain.Transaction {
	return domain.Transaction{
		ID:        sess.ID,
		Kind:      domain.TxnCheckoutSession,
		Settled:   sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AccountID: sess.Metadata[metaAccountID],
		Credits:   parseCredits(sess.Metadata[metaCredits]),
	}
}

func parseCredits(raw string) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
