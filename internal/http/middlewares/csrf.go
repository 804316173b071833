package middlewares

import (
	"net/http"
	"strings"

	"github.com/dcruzado/vitrina/internal/audit"
	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/observability/logger"
	"github.com/dcruzado/vitrina/internal/observability/metrics"
	"github.com/dcruzado/vitrina/internal/security/csrf"
)

// SessionCookie identifica la sesión anónima a la que se asocia el
// token CSRF.
const SessionCookie = "sid"

// SessionID extrae el id de sesión del cookie, o "" si no hay.
func SessionID(r *http.Request) string {
	ck, err := r.Cookie(SessionCookie)
	if err != nil || ck == nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}

// WithCSRF exige el header X-CSRF-Token válido en métodos inseguros.
// En rechazo responde 403 con el header X-CSRF-Required: el cliente
// debe pedir un token fresco a /api/auth/csrf-token y reintentar (la
// política de reintento único vive en el cliente).
//
// Requests con Authorization: Bearer se saltan el check: no son flujo
// de cookies y el token firmado ya prueba intención.
func WithCSRF(guard *csrf.Guard, auditLog audit.Logger) Middleware {
	isUnsafe := func(m string) bool {
		switch m {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			return true
		default:
			return false
		}
	}

	return func(next http.Handler) http.Handler {
		if guard == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isUnsafe(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if ah := strings.TrimSpace(r.Header.Get("Authorization")); strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			// sin cookie de sesión no hay nada que forjar: el check
			// aplica solo a clientes con sesión establecida
			sid := SessionID(r)
			if sid == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimSpace(r.Header.Get(csrf.HeaderName))
			if !guard.Validate(r.Context(), sid, token) {
				w.Header().Set("X-CSRF-Required", "true")
				metrics.RecordSecurityReject("csrf")
				if auditLog != nil {
					auditLog.Emit(r.Context(), audit.EventCSRFReject, audit.SeverityWarning,
						logger.Path(r.URL.Path),
						logger.ClientIP(ClientIP(r)),
					)
				}
				httperr.WriteError(w, r, httperr.ErrCSRF)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
