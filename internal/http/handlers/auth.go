package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dcruzado/vitrina/internal/audit"
	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/jwt"
	"github.com/dcruzado/vitrina/internal/observability/logger"
	"github.com/dcruzado/vitrina/internal/observability/metrics"
	"github.com/dcruzado/vitrina/internal/security/password"
	"github.com/dcruzado/vitrina/internal/store"
)

type userDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type tokenPair struct {
	Token        string  `json:"token"`
	RefreshToken string  `json:"refreshToken"`
	User         userDTO `json:"user"`
}

func toDTO(u *store.User) userDTO {
	return userDTO{ID: u.ID.String(), Email: u.Email, Name: u.Name, Role: u.Role}
}

func (h *Handlers) issueTokens(u *store.User) (tokenPair, error) {
	p := jwt.Payload{UserID: u.ID.String(), Email: u.Email, Role: u.Role}
	access, err := h.d.Issuer.GenerateAccessToken(p)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := h.d.Issuer.GenerateRefreshToken(p)
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{Token: access, RefreshToken: refresh, User: toDTO(u)}, nil
}

// Register crea la cuenta y hace auto-login.
// Contrato con el cliente: siempre 200 con envelope; email duplicado
// responde ok=false con code USER_EXISTS (no 409) para que el form lo
// trate como fallo de negocio, no de transporte.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if req.Email == "" || req.Password == "" {
		httperr.WriteError(w, r, httperr.ErrMissingFields.WithMessage("email and password are required"))
		return
	}

	if ok, reasons := h.d.Policy.Validate(req.Password); !ok {
		httperr.WriteError(w, r, httperr.ErrWeakPassword.WithMessage(
			"Password does not meet the security policy: "+strings.Join(reasons, ", ")))
		return
	}
	if h.d.Blacklist.Contains(req.Password) {
		httperr.WriteError(w, r, httperr.ErrWeakPassword.WithMessage(
			"Password does not meet the security policy: blacklisted"))
		return
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
		return
	}

	u := &store.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         "customer",
	}
	if err := h.d.Store.Create(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			metrics.RecordAuthOutcome("register", "failure")
			httperr.WriteFail(w, r, httperr.ErrUserExists)
			return
		}
		httperr.WriteError(w, r, httperr.ErrDatabase.WithCause(err))
		return
	}

	pair, err := h.issueTokens(u)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
		return
	}

	metrics.RecordAuthOutcome("register", "success")
	h.d.Audit.Emit(r.Context(), audit.EventRegister, audit.SeverityInfo,
		logger.UserID(u.ID.String()),
		logger.Email(u.Email),
	)
	httperr.WriteOK(w, http.StatusOK, pair)
}

// Login autentica con email+password. Fallo de credenciales responde
// 200 ok=false "Invalid credentials", genérico tanto para email
// inexistente como para password incorrecto (anti-enumeración).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Email == "" || req.Password == "" {
		httperr.WriteError(w, r, httperr.ErrMissingFields.WithMessage("email and password are required"))
		return
	}

	ctx := r.Context()
	u, err := h.d.Store.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.loginFailure(w, r, req.Email)
			return
		}
		httperr.WriteError(w, r, httperr.ErrDatabase.WithCause(err))
		return
	}

	if u.Disabled {
		httperr.WriteError(w, r, httperr.ErrAccountDisabled)
		return
	}

	if !password.Verify(req.Password, u.PasswordHash) {
		h.loginFailure(w, r, req.Email)
		return
	}

	// login OK: limpiar fallos acumulados
	if h.d.AuthFailures != nil {
		_ = h.d.AuthFailures.Clear(ctx, req.Email)
	}

	// upgrade de costo bcrypt en caliente
	if password.NeedsRehash(u.PasswordHash) {
		if newHash, err := password.Hash(req.Password); err == nil {
			if err := h.d.Store.UpdatePasswordHash(ctx, u.ID, newHash); err != nil {
				logger.From(ctx).Warn("rehash update failed", logger.Err(err))
			}
		}
	}

	// segundo factor
	if u.MFAEnabled || h.d.MFA.Policy.IsRequired(u.Role, "login") {
		challenge, err := h.newMFAChallenge(ctx, u)
		if err != nil {
			httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
			return
		}
		httperr.WriteOK(w, http.StatusOK, map[string]any{
			"mfaRequired":    true,
			"challengeToken": challenge,
		})
		return
	}

	pair, err := h.issueTokens(u)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
		return
	}

	metrics.RecordAuthOutcome("login", "success")
	h.d.Audit.Emit(ctx, audit.EventLoginSuccess, audit.SeverityInfo,
		logger.UserID(u.ID.String()),
		logger.Email(u.Email),
	)
	httperr.WriteOK(w, http.StatusOK, pair)
}

// loginFailure registra el fallo y responde genérico. Si el
// identificador acumuló demasiados fallos, corta con 429.
func (h *Handlers) loginFailure(w http.ResponseWriter, r *http.Request, email string) {
	metrics.RecordAuthOutcome("login", "failure")
	h.d.Audit.Emit(r.Context(), audit.EventLoginFailure, audit.SeverityWarning,
		logger.Email(email),
	)

	if h.d.AuthFailures != nil {
		res, err := h.d.AuthFailures.Record(r.Context(), email)
		if err == nil && !res.Allowed {
			httperr.WriteError(w, r, httperr.ErrRateLimited)
			return
		}
	}
	httperr.WriteFail(w, r, httperr.ErrInvalidCredentials)
}

const revokedPrefix = "revoked:"

// Refresh canjea un refresh token válido por un access token nuevo.
// Si el refresh está cerca de expirar también se rota.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httperr.WriteError(w, r, httperr.ErrMissingFields.WithMessage("refreshToken is required"))
		return
	}

	claims, err := h.d.Issuer.VerifyToken(req.RefreshToken, jwt.Refresh)
	if err != nil {
		metrics.RecordAuthOutcome("refresh", "failure")
		if errors.Is(err, jwt.ErrTokenExpired) {
			httperr.WriteError(w, r, httperr.ErrTokenExpired)
		} else {
			httperr.WriteError(w, r, httperr.ErrTokenInvalid)
		}
		return
	}

	ctx := r.Context()
	if revoked, err := h.d.Cache.Exists(ctx, revokedPrefix+claims.ID); err == nil && revoked {
		metrics.RecordAuthOutcome("refresh", "failure")
		httperr.WriteError(w, r, httperr.ErrTokenInvalid)
		return
	}

	p := jwt.Payload{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
	access, err := h.d.Issuer.GenerateAccessToken(p)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
		return
	}

	out := map[string]any{"token": access}
	if h.d.Issuer.NearExpiry(claims) {
		refresh, err := h.d.Issuer.GenerateRefreshToken(p)
		if err != nil {
			httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
			return
		}
		// el viejo queda revocado hasta su expiry natural
		h.revokeClaims(r, claims)
		out["refreshToken"] = refresh
	}

	metrics.RecordAuthOutcome("refresh", "success")
	h.d.Audit.Emit(ctx, audit.EventTokenRefresh, audit.SeverityInfo,
		logger.UserID(claims.UserID),
		logger.JTI(claims.ID),
	)
	httperr.WriteOK(w, http.StatusOK, out)
}

// Logout revoca el refresh token presentado.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httperr.WriteError(w, r, httperr.ErrMissingFields.WithMessage("refreshToken is required"))
		return
	}

	claims, err := h.d.Issuer.VerifyToken(req.RefreshToken, jwt.Refresh)
	if err != nil {
		// token ya inválido/expirado: logout es idempotente
		httperr.WriteOK(w, http.StatusOK, map[string]any{"loggedOut": true})
		return
	}

	h.revokeClaims(r, claims)
	h.d.Audit.Emit(r.Context(), audit.EventLogout, audit.SeverityInfo,
		logger.UserID(claims.UserID),
		logger.JTI(claims.ID),
	)
	httperr.WriteOK(w, http.StatusOK, map[string]any{"loggedOut": true})
}

// revokeClaims marca el jti como revocado hasta su expiry natural.
func (h *Handlers) revokeClaims(r *http.Request, claims *jwt.Claims) {
	ttl := h.d.Issuer.RefreshTTL
	if claims.ExpiresAt != nil {
		if rem := claims.ExpiresAt.Time.Sub(nowUTC()); rem > 0 {
			ttl = rem
		}
	}
	if err := h.d.Cache.Set(r.Context(), revokedPrefix+claims.ID, "1", ttl); err != nil {
		logger.From(r.Context()).Warn("refresh revoke failed", logger.Err(err))
	}
}
