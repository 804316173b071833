package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dcruzado/vitrina/internal/audit"
	"github.com/dcruzado/vitrina/internal/cache"
	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/http/middlewares"
	"github.com/dcruzado/vitrina/internal/observability/logger"
	"github.com/dcruzado/vitrina/internal/observability/metrics"
	"github.com/dcruzado/vitrina/internal/security/token"
	"github.com/dcruzado/vitrina/internal/store"
)

func nowUTC() time.Time { return time.Now().UTC() }

const (
	mfaChallengePrefix = "mfa_challenge:"
	mfaChallengeTTL    = 5 * time.Minute
)

// newMFAChallenge emite un challenge opaco de corta vida que vincula
// el primer factor ya validado con la verificación del segundo.
func (h *Handlers) newMFAChallenge(ctx context.Context, u *store.User) (string, error) {
	challenge, err := token.GenerateOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := h.d.Cache.Set(ctx, mfaChallengePrefix+token.SHA256Hex(challenge), u.ID.String(), mfaChallengeTTL); err != nil {
		return "", err
	}
	return challenge, nil
}

// resolveChallenge valida y consume el challenge, devolviendo el user.
func (h *Handlers) resolveChallenge(r *http.Request, challenge string) (*store.User, *httperr.AppError) {
	if challenge == "" {
		return nil, httperr.ErrMFARequired
	}
	key := mfaChallengePrefix + token.SHA256Hex(challenge)
	userID, err := h.d.Cache.Get(r.Context(), key)
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, httperr.ErrMFARequired.WithMessage("Challenge expired, please log in again")
		}
		return nil, httperr.ErrInternal.WithCause(err)
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, httperr.ErrInternal.WithCause(err)
	}
	u, err := h.d.Store.GetByID(r.Context(), id)
	if err != nil {
		return nil, httperr.ErrInternal.WithCause(err)
	}

	// un challenge vale para un solo intento exitoso; se consume al
	// emitir tokens, no acá (permite reintentar el código)
	return u, nil
}

func (h *Handlers) consumeChallenge(r *http.Request, challenge string) {
	_ = h.d.Cache.Delete(r.Context(), mfaChallengePrefix+token.SHA256Hex(challenge))
}

// MFASetup genera el material de enrollment: secreto TOTP, URL otpauth
// para el QR y recovery codes. Requiere bearer. Los códigos en claro se
// muestran UNA sola vez; persiste solo material hasheado, aún
// deshabilitado hasta que MFAEnable pruebe posesión.
func (h *Handlers) MFASetup(w http.ResponseWriter, r *http.Request) {
	claims := middlewares.GetClaims(r.Context())
	if claims == nil {
		httperr.WriteError(w, r, httperr.ErrTokenMissing)
		return
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrTokenInvalid)
		return
	}

	enr, err := h.d.MFA.SetupTOTP(claims.Email)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
		return
	}
	if err := h.d.Store.UpdateMFA(r.Context(), id, enr.Secret, enr.RecoveryHashes, false); err != nil {
		httperr.WriteError(w, r, httperr.ErrDatabase.WithCause(err))
		return
	}

	h.d.Audit.Emit(r.Context(), audit.EventMFASetup, audit.SeverityInfo,
		logger.UserID(claims.UserID),
	)
	httperr.WriteOK(w, http.StatusOK, map[string]any{
		"secret":        enr.Secret,
		"otpauthUrl":    enr.OTPAuthURL,
		"recoveryCodes": enr.RecoveryCodes,
	})
}

// MFAEnable prueba posesión del secreto con un código válido y activa
// el segundo factor.
func (h *Handlers) MFAEnable(w http.ResponseWriter, r *http.Request) {
	claims := middlewares.GetClaims(r.Context())
	if claims == nil {
		httperr.WriteError(w, r, httperr.ErrTokenMissing)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrTokenInvalid)
		return
	}
	u, err := h.d.Store.GetByID(r.Context(), id)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrDatabase.WithCause(err))
		return
	}
	if u.TOTPSecret == "" {
		httperr.WriteError(w, r, httperr.ErrValidation.WithMessage("MFA setup has not been started"))
		return
	}

	if !h.d.MFA.VerifyTOTP(u.TOTPSecret, strings.TrimSpace(req.Code)) {
		metrics.RecordAuthOutcome("mfa", "failure")
		h.d.Audit.Emit(r.Context(), audit.EventMFAFailure, audit.SeverityWarning,
			logger.UserID(claims.UserID),
		)
		httperr.WriteError(w, r, httperr.ErrMFAInvalidCode)
		return
	}

	if err := h.d.Store.UpdateMFA(r.Context(), id, u.TOTPSecret, u.RecoveryHashes, true); err != nil {
		httperr.WriteError(w, r, httperr.ErrDatabase.WithCause(err))
		return
	}

	metrics.RecordAuthOutcome("mfa", "success")
	h.d.Audit.Emit(r.Context(), audit.EventMFAVerify, audit.SeverityInfo,
		logger.UserID(claims.UserID),
	)
	httperr.WriteOK(w, http.StatusOK, map[string]any{"mfaEnabled": true})
}

// MFAVerify completa el login: valida el código TOTP contra el
// challenge emitido por Login y recién ahí entrega tokens.
func (h *Handlers) MFAVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChallengeToken string `json:"challengeToken"`
		Code           string `json:"code"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	u, appErr := h.resolveChallenge(r, req.ChallengeToken)
	if appErr != nil {
		httperr.WriteError(w, r, appErr)
		return
	}

	if u.TOTPSecret == "" || !h.d.MFA.VerifyTOTP(u.TOTPSecret, strings.TrimSpace(req.Code)) {
		metrics.RecordAuthOutcome("mfa", "failure")
		h.d.Audit.Emit(r.Context(), audit.EventMFAFailure, audit.SeverityWarning,
			logger.UserID(u.ID.String()),
		)
		httperr.WriteError(w, r, httperr.ErrMFAInvalidCode)
		return
	}

	h.consumeChallenge(r, req.ChallengeToken)
	pair, err := h.issueTokens(u)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
		return
	}

	metrics.RecordAuthOutcome("mfa", "success")
	h.d.Audit.Emit(r.Context(), audit.EventMFAVerify, audit.SeverityInfo,
		logger.UserID(u.ID.String()),
	)
	httperr.WriteOK(w, http.StatusOK, pair)
}

// MFARecovery completa el login con un recovery code de un solo uso.
// El código que matchea se consume ANTES de emitir tokens: nunca puede
// verificar dos veces.
func (h *Handlers) MFARecovery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChallengeToken string `json:"challengeToken"`
		Code           string `json:"code"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	u, appErr := h.resolveChallenge(r, req.ChallengeToken)
	if appErr != nil {
		httperr.WriteError(w, r, appErr)
		return
	}

	ok, idx := h.d.MFA.VerifyRecovery(req.Code, u.RecoveryHashes)
	if !ok {
		metrics.RecordAuthOutcome("mfa", "failure")
		h.d.Audit.Emit(r.Context(), audit.EventMFAFailure, audit.SeverityWarning,
			logger.UserID(u.ID.String()),
		)
		httperr.WriteError(w, r, httperr.ErrMFAInvalidCode)
		return
	}

	if err := h.d.Store.ConsumeRecoveryCode(r.Context(), u.ID, idx); err != nil {
		httperr.WriteError(w, r, httperr.ErrDatabase.WithCause(err))
		return
	}

	h.consumeChallenge(r, req.ChallengeToken)
	pair, err := h.issueTokens(u)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
		return
	}

	metrics.RecordAuthOutcome("mfa", "success")
	h.d.Audit.Emit(r.Context(), audit.EventMFAVerify, audit.SeverityInfo,
		logger.UserID(u.ID.String()),
		logger.String("method", "recovery_code"),
	)
	httperr.WriteOK(w, http.StatusOK, pair)
}
