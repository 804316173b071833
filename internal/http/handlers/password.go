package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dcruzado/vitrina/internal/audit"
	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/mfa"
	"github.com/dcruzado/vitrina/internal/observability/logger"
	"github.com/dcruzado/vitrina/internal/security/password"
	"github.com/dcruzado/vitrina/internal/store"
)

// ForgotPassword emite un OTP de 6 dígitos por email. La respuesta es
// idéntica exista o no la cuenta: nada de enumerar usuarios por acá.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		httperr.WriteError(w, r, httperr.ErrMissingFields.WithMessage("email is required"))
		return
	}

	ctx := r.Context()
	if _, err := h.d.Store.GetByEmail(ctx, req.Email); err == nil {
		code, err := h.d.MFA.IssueOTP(ctx, req.Email)
		if err != nil {
			logger.From(ctx).Error("otp issue failed", logger.Err(err))
		} else if h.d.Email != nil {
			if err := h.d.Email.Send(ctx, req.Email,
				"Your verification code",
				"<p>Your verification code is <b>"+code+"</b>. It expires in a few minutes.</p>",
				"Your verification code is "+code+". It expires in a few minutes.",
			); err != nil {
				logger.From(ctx).Error("otp email failed", logger.Err(err))
			}
		}
		h.d.Audit.Emit(ctx, audit.EventPasswordReset, audit.SeverityInfo,
			logger.Email(req.Email),
			logger.Op("forgot_password"),
		)
	}

	httperr.WriteOK(w, http.StatusOK, map[string]any{
		"message": "If the email exists, a verification code has been sent",
	})
}

// VerifyOTP valida el código de reset y cambia el password. La nueva
// contraseña pasa por la misma política que en el registro.
func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"newPassword"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Email == "" || req.OTP == "" || req.NewPassword == "" {
		httperr.WriteError(w, r, httperr.ErrMissingFields.WithMessage("email, otp and newPassword are required"))
		return
	}

	if ok, reasons := h.d.Policy.Validate(req.NewPassword); !ok {
		httperr.WriteError(w, r, httperr.ErrWeakPassword.WithMessage(
			"Password does not meet the security policy: "+strings.Join(reasons, ", ")))
		return
	}
	if h.d.Blacklist.Contains(req.NewPassword) {
		httperr.WriteError(w, r, httperr.ErrWeakPassword.WithMessage(
			"Password does not meet the security policy: blacklisted"))
		return
	}

	ctx := r.Context()
	if err := h.d.MFA.VerifyOTP(ctx, req.Email, req.OTP); err != nil {
		if errors.Is(err, mfa.ErrOTPNotFound) || errors.Is(err, mfa.ErrOTPMismatch) {
			httperr.WriteError(w, r, httperr.ErrMFAInvalidCode)
			return
		}
		httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
		return
	}

	u, err := h.d.Store.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// OTP válido para un email sin cuenta no debería pasar,
			// pero tampoco revelamos nada
			httperr.WriteError(w, r, httperr.ErrMFAInvalidCode)
			return
		}
		httperr.WriteError(w, r, httperr.ErrDatabase.WithCause(err))
		return
	}

	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
		return
	}
	if err := h.d.Store.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		httperr.WriteError(w, r, httperr.ErrDatabase.WithCause(err))
		return
	}

	h.d.Audit.Emit(ctx, audit.EventPasswordReset, audit.SeverityInfo,
		logger.UserID(u.ID.String()),
		logger.Op("password_changed"),
	)
	httperr.WriteOK(w, http.StatusOK, map[string]any{"passwordChanged": true})
}
