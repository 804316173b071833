package handlers

import (
	"net/http"

	"github.com/google/uuid"

	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/http/middlewares"
)

// CSRFToken emite el token CSRF de la sesión. Si no hay cookie de
// sesión, la crea. Emitir de nuevo invalida el token anterior: un solo
// token activo por sesión.
func (h *Handlers) CSRFToken(w http.ResponseWriter, r *http.Request) {
	sid := middlewares.SessionID(r)
	if sid == "" {
		sid = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     middlewares.SessionCookie,
			Value:    sid,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	tok, err := h.d.CSRF.Issue(r.Context(), sid)
	if err != nil {
		httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	httperr.WriteOK(w, http.StatusOK, map[string]any{"csrfToken": tok})
}
