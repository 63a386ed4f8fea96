package domain

// CreditPackage is a purchasable bundle of generation credits.
type CreditPackage struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Credits        int64   `json:"credits"`
	Price          float64 `json:"price"`
	PricePerCredit float64 `json:"pricePerCredit"`
	BaseCredits    int64   `json:"baseCredits"`
	BonusCredits   int64   `json:"bonusCredits"`
	Currency       string  `json:"currency"`
	Popular        bool    `json:"popular"`
}

// TransactionKind distinguishes the two provider objects we reconcile.
type TransactionKind string

const (
	TxnPaymentIntent   TransactionKind = "payment_intent"
	TxnCheckoutSession TransactionKind = "checkout_session"
)

// Transaction is the provider-neutral view of a purchase attempt as
// reported by the payment provider.
type Transaction struct {
	ID        string
	Kind      TransactionKind
	Settled   bool
	AccountID string // bound account from the transaction metadata
	Credits   int64  // credit quantity from the transaction metadata
}

// CheckoutSession is a freshly created hosted-checkout redirect.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentIntent is a freshly created client-confirmable payment.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64 // minor units
}

// WebhookEvent is a signature-verified provider notification.
type WebhookEvent struct {
	ID          string
	Type        string
	Transaction Transaction
}
