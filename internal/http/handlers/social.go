package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dcruzado/vitrina/internal/audit"
	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/observability/logger"
	"github.com/dcruzado/vitrina/internal/observability/metrics"
	"github.com/dcruzado/vitrina/internal/security/token"
	"github.com/dcruzado/vitrina/internal/store"
)

const (
	oauthStatePrefix = "oauth_state:"
	oauthStateTTL    = 10 * time.Minute
)

// OAuthStart redirige al proveedor con un state anti-CSRF de un solo
// uso.
func (h *Handlers) OAuthStart(providerName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.d.Providers[providerName]
		if !ok {
			httperr.WriteError(w, r, httperr.ErrNotFound)
			return
		}

		state, err := token.GenerateOpaqueToken()
		if err != nil {
			httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
			return
		}
		if err := h.d.Cache.Set(r.Context(), oauthStatePrefix+state, providerName, oauthStateTTL); err != nil {
			httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
			return
		}

		u, err := p.AuthURL(r.Context(), state)
		if err != nil {
			httperr.WriteError(w, r, httperr.ErrExternalService.WithCause(err))
			return
		}
		http.Redirect(w, r, u, http.StatusFound)
	}
}

// OAuthCallback completa el login social: valida el state, canjea el
// code, trae el perfil y resuelve el usuario local (por provider ID,
// después por email vinculando, y si no existe lo provisiona).
func (h *Handlers) OAuthCallback(providerName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.d.Providers[providerName]
		if !ok {
			httperr.WriteError(w, r, httperr.ErrNotFound)
			return
		}

		ctx := r.Context()
		q := r.URL.Query()
		code := q.Get("code")
		state := q.Get("state")

		if code == "" {
			httperr.WriteError(w, r, httperr.ErrValidation.WithMessage("missing authorization code"))
			return
		}

		// state de un solo uso
		stored, err := h.d.Cache.Get(ctx, oauthStatePrefix+state)
		if err != nil || stored != providerName {
			httperr.WriteError(w, r, httperr.ErrForbidden.WithMessage("invalid oauth state"))
			return
		}
		_ = h.d.Cache.Delete(ctx, oauthStatePrefix+state)

		accessToken, err := p.Exchange(ctx, code)
		if err != nil {
			metrics.RecordAuthOutcome("login", "failure")
			httperr.WriteError(w, r, httperr.ErrExternalService.WithCause(err))
			return
		}
		profile, err := p.FetchProfile(ctx, accessToken)
		if err != nil {
			metrics.RecordAuthOutcome("login", "failure")
			httperr.WriteError(w, r, httperr.ErrExternalService.WithCause(err))
			return
		}

		u, err := h.resolveSocialUser(r, providerName, profile.ProviderID, profile.Email, profile.Name)
		if err != nil {
			httperr.WriteError(w, r, err)
			return
		}

		if u.Disabled {
			httperr.WriteError(w, r, httperr.ErrAccountDisabled)
			return
		}

		pair, terr := h.issueTokens(u)
		if terr != nil {
			httperr.WriteError(w, r, httperr.ErrInternal.WithCause(terr))
			return
		}

		metrics.RecordAuthOutcome("login", "success")
		h.d.Audit.Emit(ctx, audit.EventOAuthLogin, audit.SeverityInfo,
			logger.UserID(u.ID.String()),
			logger.Provider(providerName),
		)
		httperr.WriteOK(w, http.StatusOK, pair)
	}
}

// resolveSocialUser busca por provider ID, vincula por email, o
// provisiona una cuenta nueva sin credencial de password.
func (h *Handlers) resolveSocialUser(r *http.Request, provider, providerID, email, name string) (*store.User, *httperr.AppError) {
	ctx := r.Context()

	u, err := h.d.Store.GetByProviderID(ctx, provider, providerID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, httperr.ErrDatabase.WithCause(err)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		if u, err := h.d.Store.GetByEmail(ctx, email); err == nil {
			if lerr := h.d.Store.LinkProvider(ctx, u.ID, provider, providerID); lerr != nil {
				return nil, httperr.ErrDatabase.WithCause(lerr)
			}
			return u, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, httperr.ErrDatabase.WithCause(err)
		}
	}

	// provisioning: cuenta social sin password
	nu := &store.User{
		Email: email,
		Name:  name,
		Role:  "customer",
	}
	switch provider {
	case "google":
		nu.GoogleID = providerID
	case "facebook":
		nu.FacebookID = providerID
	}
	if err := h.d.Store.Create(ctx, nu); err != nil {
		return nil, httperr.ErrDatabase.WithCause(err)
	}

	h.d.Audit.Emit(ctx, audit.EventRegister, audit.SeverityInfo,
		logger.UserID(nu.ID.String()),
		logger.Provider(provider),
	)
	return nu, nil
}
