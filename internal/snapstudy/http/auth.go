package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yakshxo/snapstudy/internal/snapstudy/service"
	"github.com/yakshxo/snapstudy/pkg/httpx"
	"github.com/yakshxo/snapstudy/pkg/slogx"
)

// AuthHandler covers registration, login, the OTP challenge endpoints and
// the authenticated /me read.
type AuthHandler struct {
	Accounts *service.AccountService
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister handles POST /api/auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var errs []string
	errs = append(errs, validateName(req.Name)...)
	errs = append(errs, validateEmail(req.Email)...)
	errs = append(errs, validatePassword(req.Password)...)
	if len(errs) > 0 {
		httpx.FailValidation(w, errs)
		return
	}

	challenge, err := h.Accounts.Register(ctx, req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrAccountExists):
		httpx.Fail(w, http.StatusBadRequest, "An account with this email already exists")
	case errors.Is(err, service.ErrNotificationFailed):
		httpx.Fail(w, http.StatusBadGateway, "Could not send verification email. Please try again.")
	case err != nil:
		log.Error("register failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.OKMessage(w, http.StatusCreated, "Verification code sent", map[string]any{
			"email":   challenge.Email,
			"otpSent": true,
		})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /api/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	var errs []string
	errs = append(errs, validateEmail(req.Email)...)
	if req.Password == "" {
		errs = append(errs, "password is required")
	}
	if len(errs) > 0 {
		httpx.FailValidation(w, errs)
		return
	}

	challenge, err := h.Accounts.Login(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.Fail(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrNotVerified):
		httpx.Fail(w, http.StatusUnauthorized, "Account not verified. Please complete signup verification first.")
	case errors.Is(err, service.ErrNotificationFailed):
		httpx.Fail(w, http.StatusBadGateway, "Could not send verification email. Please try again.")
	case err != nil:
		log.Error("login failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.OKMessage(w, http.StatusOK, "Verification code sent", map[string]any{
			"email":   challenge.Email,
			"otpSent": true,
		})
	}
}

type verifyOTPRequest struct {
	Email   string `json:"email"`
	OTP     string `json:"otp"`
	IsLogin bool   `json:"isLogin"`
}

// HandleVerifyOTP handles POST /api/auth/verify-otp.
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	var errs []string
	errs = append(errs, validateEmail(req.Email)...)
	errs = append(errs, validateOTP(req.OTP)...)
	if len(errs) > 0 {
		httpx.FailValidation(w, errs)
		return
	}

	session, err := h.Accounts.CompleteChallenge(ctx, req.Email, req.OTP, req.IsLogin)
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		httpx.Fail(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, service.ErrInvalidOTP):
		httpx.Fail(w, http.StatusBadRequest, "Invalid or expired verification code")
	case err != nil:
		log.Error("verify otp failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.NoCache(w)
		httpx.OK(w, http.StatusOK, map[string]any{
			"token": session.Token,
			"user":  viewAccount(session.Account),
		})
	}
}

type resendOTPRequest struct {
	Email   string `json:"email"`
	IsLogin bool   `json:"isLogin"`
}

// HandleResendOTP handles POST /api/auth/resend-otp.
func (h *AuthHandler) HandleResendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req resendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if errs := validateEmail(req.Email); len(errs) > 0 {
		httpx.FailValidation(w, errs)
		return
	}

	challenge, err := h.Accounts.ResendChallenge(ctx, req.Email, req.IsLogin)
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		httpx.Fail(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, service.ErrMustVerifyFirst):
		httpx.Fail(w, http.StatusBadRequest, "Account must be verified before signing in")
	case errors.Is(err, service.ErrNotificationFailed):
		httpx.Fail(w, http.StatusBadGateway, "Could not send verification email. Please try again.")
	case err != nil:
		log.Error("resend otp failed", "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.OKMessage(w, http.StatusOK, "Verification code sent", map[string]any{
			"email":   challenge.Email,
			"otpSent": true,
		})
	}
}

// HandleMe handles GET /api/auth/me. The account is re-read on every call;
// a session token never caches balance or verification state.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID := httpx.AccountIDFromContext(ctx)
	account, err := h.Accounts.GetAccount(ctx, accountID)
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		httpx.Fail(w, http.StatusUnauthorized, "Account no longer exists")
	case err != nil:
		log.Error("load account failed", "account_id", accountID, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.OK(w, http.StatusOK, map[string]any{"user": viewAccount(account)})
	}
}
