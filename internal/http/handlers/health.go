package handlers

import (
	"net/http"

	httperr "github.com/dcruzado/vitrina/internal/http/errors"
)

// Healthz chequea store y cache.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := map[string]string{"store": "ok", "cache": "ok"}
	healthy := true

	if err := h.d.Store.Ping(ctx); err != nil {
		status["store"] = "down"
		healthy = false
	}
	if err := h.d.Cache.Ping(ctx); err != nil {
		status["cache"] = "down"
		healthy = false
	}

	if !healthy {
		httperr.WriteError(w, r, &httperr.AppError{
			Code:       "UNHEALTHY",
			Message:    "One or more dependencies are down",
			HTTPStatus: http.StatusServiceUnavailable,
		})
		return
	}
	httperr.WriteOK(w, http.StatusOK, status)
}
