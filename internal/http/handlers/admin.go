package handlers

import (
	"net/http"
	"strings"

	"github.com/dcruzado/vitrina/internal/audit"
	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/http/middlewares"
	"github.com/dcruzado/vitrina/internal/observability/logger"
)

// ClearRateLimit resetea la ventana de un identificador (override de
// admin: desbloquear un cliente legítimo). Siempre auditado.
func (h *Handlers) ClearRateLimit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" {
		httperr.WriteError(w, r, httperr.ErrMissingFields.WithMessage("identifier is required"))
		return
	}

	ctx := r.Context()
	if h.d.Limiter != nil {
		if err := h.d.Limiter.Clear(ctx, req.Identifier); err != nil {
			httperr.WriteError(w, r, httperr.ErrInternal.WithCause(err))
			return
		}
	}
	if h.d.AuthFailures != nil {
		_ = h.d.AuthFailures.Clear(ctx, req.Identifier)
	}

	claims := middlewares.GetClaims(ctx)
	adminID := ""
	if claims != nil {
		adminID = claims.UserID
	}
	h.d.Audit.Emit(ctx, audit.EventAdminOverride, audit.SeverityWarning,
		logger.UserID(adminID),
		logger.Op("clear_rate_limit"),
		logger.Identifier(req.Identifier),
	)
	httperr.WriteOK(w, http.StatusOK, map[string]any{"cleared": req.Identifier})
}
