package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yakshxo/snapstudy/internal/snapstudy/service"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store"
	"github.com/yakshxo/snapstudy/pkg/httpx"
	"github.com/yakshxo/snapstudy/pkg/jwtx"
	"github.com/yakshxo/snapstudy/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AccountService   *service.AccountService
	FlashcardService *service.FlashcardService
	PaymentService   *service.PaymentService
	ProfileService   *service.ProfileService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerFlashcards()
	r.registerPayments()
	r.registerProfile()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Accounts: r.AccountService}

	// Credential and OTP endpoints are keyed by IP plus the submitted
	// email, so one address cannot be hammered from rotating sources.
	// This is also the lid on OTP resend abuse.
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIPAndEmail(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndEmail(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/verify-otp",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyOTP),
			httpx.RateLimitByIPAndEmail(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/resend-otp",
		httpx.Chain(http.HandlerFunc(h.HandleResendOTP),
			httpx.RateLimitByIPAndEmail(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerFlashcards() {
	h := &FlashcardsHandler{Flashcards: r.FlashcardService}

	// Generation is the expensive call; moderate limit per account.
	r.Mux.Handle("POST /api/flashcards/generate-text",
		httpx.Chain(http.HandlerFunc(h.HandleGenerate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)

	reads := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(httpx.LenientLimit),
		)
	}
	r.Mux.Handle("GET /api/flashcards", reads(h.HandleList))
	r.Mux.Handle("GET /api/flashcards/{id}", reads(h.HandleGet))
	r.Mux.Handle("DELETE /api/flashcards/{id}", reads(h.HandleDelete))
}

func (r *Router) registerPayments() {
	h := &PaymentsHandler{Payments: r.PaymentService, Accounts: r.AccountService}

	secured := func(next http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(limit),
		)
	}

	r.Mux.Handle("GET /api/payments/packages", secured(h.HandlePackages, httpx.LenientLimit))
	r.Mux.Handle("POST /api/payments/create-checkout-session", secured(h.HandleCreateCheckoutSession, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/payments/create-payment-intent", secured(h.HandleCreatePaymentIntent, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/payments/confirm-payment", secured(h.HandleConfirmPayment, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/payments/checkout-success", secured(h.HandleCheckoutSuccess, httpx.ModerateLimit))

	// Webhook: unauthenticated, signature-verified, raw body required.
	r.Mux.Handle("POST /api/payments/webhook",
		httpx.Chain(http.HandlerFunc(h.HandleWebhook),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerProfile() {
	h := &ProfileHandler{Profile: r.ProfileService}

	secured := func(next http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(limit),
		)
	}

	r.Mux.Handle("GET /api/profile", secured(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("PUT /api/profile", secured(h.HandleUpdate, httpx.ModerateLimit))
	r.Mux.Handle("POST /api/profile/request-email-change", secured(h.HandleRequestEmailChange, httpx.StrictLimit))
	r.Mux.Handle("POST /api/profile/confirm-email-change", secured(h.HandleConfirmEmailChange, httpx.StrictLimit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
