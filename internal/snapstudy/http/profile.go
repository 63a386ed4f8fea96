package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yakshxo/snapstudy/internal/snapstudy/service"
	"github.com/yakshxo/snapstudy/pkg/httpx"
	"github.com/yakshxo/snapstudy/pkg/slogx"
)

// ProfileHandler covers profile reads/updates and the two-step email
// change.
type ProfileHandler struct {
	Profile *service.ProfileService
}

// HandleGet handles GET /api/profile.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	account, err := h.Profile.Get(ctx, accountID)
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		httpx.Fail(w, http.StatusUnauthorized, "Account no longer exists")
	case err != nil:
		slogx.FromContext(ctx).Error("load profile failed", "account_id", accountID, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.OK(w, http.StatusOK, map[string]any{"user": viewAccount(account)})
	}
}

type updateProfileRequest struct {
	SchoolName  *string `json:"schoolName"`
	PhoneNumber *string `json:"phoneNumber"`
}

// HandleUpdate handles PUT /api/profile. Absent fields are left unchanged.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	account, err := h.Profile.Update(ctx, accountID, req.SchoolName, req.PhoneNumber)
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		httpx.Fail(w, http.StatusUnauthorized, "Account no longer exists")
	case err != nil:
		slogx.FromContext(ctx).Error("update profile failed", "account_id", accountID, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.OKMessage(w, http.StatusOK, "Profile updated", map[string]any{
			"user": viewAccount(account),
		})
	}
}

type requestEmailChangeRequest struct {
	NewEmail string `json:"newEmail"`
	Password string `json:"password"`
}

// HandleRequestEmailChange handles POST /api/profile/request-email-change.
func (h *ProfileHandler) HandleRequestEmailChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	var req requestEmailChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	var errs []string
	errs = append(errs, validateEmail(req.NewEmail)...)
	if req.Password == "" {
		errs = append(errs, "password is required")
	}
	if len(errs) > 0 {
		httpx.FailValidation(w, errs)
		return
	}

	err := h.Profile.RequestEmailChange(ctx, accountID, req.NewEmail, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.Fail(w, http.StatusUnauthorized, "Incorrect password")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.Fail(w, http.StatusBadRequest, "Email is already in use")
	case errors.Is(err, service.ErrNotificationFailed):
		httpx.Fail(w, http.StatusBadGateway, "Could not send verification email. Please try again.")
	case err != nil:
		slogx.FromContext(ctx).Error("request email change failed", "account_id", accountID, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.OKMessage(w, http.StatusOK, "Verification code sent to new email", map[string]any{
			"otpSent": true,
		})
	}
}

type confirmEmailChangeRequest struct {
	NewEmail string `json:"newEmail"`
	OTP      string `json:"otp"`
}

// HandleConfirmEmailChange handles POST /api/profile/confirm-email-change.
func (h *ProfileHandler) HandleConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := httpx.AccountIDFromContext(ctx)

	var req confirmEmailChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	var errs []string
	errs = append(errs, validateEmail(req.NewEmail)...)
	errs = append(errs, validateOTP(req.OTP)...)
	if len(errs) > 0 {
		httpx.FailValidation(w, errs)
		return
	}

	account, err := h.Profile.ConfirmEmailChange(ctx, accountID, req.NewEmail, req.OTP)
	switch {
	case errors.Is(err, service.ErrInvalidOTP):
		httpx.Fail(w, http.StatusBadRequest, "Invalid or expired verification code")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.Fail(w, http.StatusBadRequest, "Email is already in use")
	case err != nil:
		slogx.FromContext(ctx).Error("confirm email change failed", "account_id", accountID, "error", err)
		httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
	default:
		httpx.OKMessage(w, http.StatusOK, "Email updated", map[string]any{
			"user": viewAccount(account),
		})
	}
}
