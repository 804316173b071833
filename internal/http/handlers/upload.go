package handlers

import (
	"net/http"
	"strings"

	"github.com/dcruzado/vitrina/internal/audit"
	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/http/middlewares"
	"github.com/dcruzado/vitrina/internal/observability/logger"
	"github.com/dcruzado/vitrina/internal/security/threat"
)

// ValidateUpload es el pre-flight de uploads: el frontend manda los
// metadatos del archivo antes de subirlo y recibe el veredicto contra
// las reglas configuradas. El storage que reciba el archivo revalida;
// esto solo evita subir bytes que van a ser rechazados.
func (h *Handlers) ValidateUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
		MIME string `json:"mime"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	ok, violations := threat.ValidateFile(threat.FileInfo{
		Name: req.Name,
		Size: req.Size,
		MIME: req.MIME,
	}, h.d.Upload)
	if violations == nil {
		violations = []string{}
	}

	if !ok {
		uid := ""
		if claims := middlewares.GetClaims(r.Context()); claims != nil {
			uid = claims.UserID
		}
		h.d.Audit.Emit(r.Context(), audit.EventThreatDetected, audit.SeverityWarning,
			logger.UserID(uid),
			logger.Op("validate_upload"),
			logger.Threat(strings.Join(violations, ",")),
		)
	}

	httperr.WriteOK(w, http.StatusOK, map[string]any{
		"allowed":    ok,
		"violations": violations,
	})
}
