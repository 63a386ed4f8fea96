package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/internal/snapstudy/service"
	"github.com/yakshxo/snapstudy/pkg/httpx"
	"github.com/yakshxo/snapstudy/pkg/slogx"
)

// maxWebhookBody bounds the raw webhook payload read.
const maxWebhookBody = 1 << 20

// PaymentsHandler covers the credit package catalog, purchase creation,
// interactive confirmation and the provider webhook.
type PaymentsHandler struct {
	Payments *service.PaymentService
	Accounts *service.AccountService
}

// HandlePackages handles GET /api/payments/packages.
func (h *PaymentsHandler) HandlePackages(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, map[string]any{"packages": service.Packages()})
}

type createPurchaseRequest struct {
	PackageID string `json:"packageId"`
}

// resolveAccount loads the authenticated account or writes the error
// response and returns false.
func (h *PaymentsHandler) resolveAccount(w http.ResponseWriter, r *http.Request) (domain.Account, bool) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	account, err := h.Accounts.GetAccount(ctx, accountID)
	if errors.Is(err, service.ErrAccountNotFound) {
		httpx.Fail(w, http.StatusUnauthorized, "Account no longer exists")
		return domain.Account{}, false
	}
	if err != nil {
		slogx.FromContext(ctx).Error("load account failed", "account_id", accountID, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
		return domain.Account{}, false
	}
	return account, true
}

// HandleCreateCheckoutSession handles POST /api/payments/create-checkout-session.
func (h *PaymentsHandler) HandleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req createPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	account, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}

	session, err := h.Payments.CreateCheckoutSession(ctx, account, req.PackageID)
	switch {
	case errors.Is(err, service.ErrUnknownPackage):
		httpx.Fail(w, http.StatusBadRequest, "Unknown credit package")
	case err != nil:
		log.Error("create checkout session failed", "account_id", account.ID, "error", err)
		httpx.Fail(w, http.StatusBadGateway, "Could not start checkout. Please try again.")
	default:
		httpx.OK(w, http.StatusOK, map[string]any{
			"sessionId": session.ID,
			"url":       session.URL,
		})
	}
}

// HandleCreatePaymentIntent handles POST /api/payments/create-payment-intent.
func (h *PaymentsHandler) HandleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req createPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	account, ok := h.resolveAccount(w, r)
	if !ok {
		return
	}

	intent, err := h.Payments.CreatePaymentIntent(ctx, account, req.PackageID)
	switch {
	case errors.Is(err, service.ErrUnknownPackage):
		httpx.Fail(w, http.StatusBadRequest, "Unknown credit package")
	case err != nil:
		log.Error("create payment intent failed", "account_id", account.ID, "error", err)
		httpx.Fail(w, http.StatusBadGateway, "Could not start payment. Please try again.")
	default:
		httpx.NoCache(w)
		httpx.OK(w, http.StatusOK, map[string]any{
			"paymentIntentId": intent.ID,
			"clientSecret":    intent.ClientSecret,
			"amount":          intent.Amount,
		})
	}
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

// HandleConfirmPayment handles POST /api/payments/confirm-payment.
func (h *PaymentsHandler) HandleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.PaymentIntentID == "" {
		httpx.FailValidation(w, []string{"paymentIntentId is required"})
		return
	}

	result, err := h.Payments.ConfirmPayment(ctx, accountID, req.PaymentIntentID)
	h.writeConfirm(w, r, result, err)
}

type checkoutSuccessRequest struct {
	SessionID string `json:"sessionId"`
}

// HandleCheckoutSuccess handles POST /api/payments/checkout-success.
func (h *PaymentsHandler) HandleCheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	var req checkoutSuccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.SessionID == "" {
		httpx.FailValidation(w, []string{"sessionId is required"})
		return
	}

	result, err := h.Payments.CheckoutSuccess(ctx, accountID, req.SessionID)
	h.writeConfirm(w, r, result, err)
}

func (h *PaymentsHandler) writeConfirm(w http.ResponseWriter, r *http.Request, result service.ConfirmResult, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, service.ErrTransactionNotFound):
		httpx.Fail(w, http.StatusNotFound, "Payment not found")
	case errors.Is(err, service.ErrNotSettled):
		httpx.Fail(w, http.StatusBadRequest, "Payment has not completed")
	case errors.Is(err, service.ErrAccountMismatch):
		httpx.Fail(w, http.StatusForbidden, "Payment belongs to a different account")
	case err != nil:
		log.Error("confirm payment failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		message := "Credits added"
		if result.AlreadyProcessed {
			message = "Payment already processed"
		}
		httpx.OKMessage(w, http.StatusOK, message, map[string]any{
			"creditsAdded": result.CreditsAdded,
			"newBalance":   result.NewBalance,
		})
	}
}

// HandleWebhook handles POST /api/payments/webhook. The raw body is needed
// verbatim for signature verification, so this route must never sit behind
// anything that consumes or re-encodes it.
func (h *PaymentsHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Could not read payload")
		return
	}

	err = h.Payments.HandleWebhook(ctx, payload, r.Header.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		httpx.Fail(w, http.StatusBadRequest, "Invalid signature")
	case err != nil:
		// Non-2xx makes the provider redeliver; the grant is idempotent,
		// so a retry is always safe.
		log.Error("webhook handling failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Webhook handling failed")
	default:
		httpx.OK(w, http.StatusOK, map[string]any{"received": true})
	}
}
