package middlewares

import (
	"bytes"
	"io"
	"net/http"

	"github.com/dcruzado/vitrina/internal/audit"
	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/observability/logger"
	"github.com/dcruzado/vitrina/internal/observability/metrics"
	"github.com/dcruzado/vitrina/internal/security/threat"
)

// maxInspectBytes limita cuánto body se inspecciona; coincide con el
// límite de ReadJSON. El body se repone para el handler.
const maxInspectBytes = 1 << 20

// WithIPCheck rechaza de plano (403) las IPs bloqueadas. Es la primera
// etapa del pipeline de seguridad; el rechazo se audita antes de
// responder.
func WithIPCheck(blockedIPs []string, auditLog audit.Logger) Middleware {
	blocked := make(map[string]struct{}, len(blockedIPs))
	for _, ip := range blockedIPs {
		blocked[ip] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		if len(blocked) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if _, bad := blocked[ip]; bad {
				metrics.RecordSecurityReject("ip")
				if auditLog != nil {
					auditLog.Emit(r.Context(), audit.EventIPBlocked, audit.SeverityCritical,
						logger.ClientIP(ip),
						logger.Path(r.URL.Path),
					)
				}
				httperr.WriteError(w, r, httperr.ErrIPBlocked)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithThreatDetection corre validación de input y detección de
// patrones (SQLi, XSS, traversal) sobre query string y body. Cada
// rechazo se audita antes de responder; el pass-through registra el
// acceso de forma asíncrona sin bloquear la respuesta.
//
// La detección es heurística por firmas, no un parser: limitación
// conocida, el comportamiento se preserva tal cual.
func WithThreatDetection(auditLog audit.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			if kind, ok := inspect(r); !ok {
				metrics.RecordSecurityReject("pattern")
				if auditLog != nil {
					auditLog.Emit(r.Context(), audit.EventThreatDetected, audit.SeverityCritical,
						logger.Threat(kind),
						logger.ClientIP(ip),
						logger.Path(r.URL.Path),
					)
				}
				httperr.WriteError(w, r, httperr.ErrThreatDetected)
				return
			}

			// audit del acceso, async, sin bloquear la respuesta
			if auditLog != nil {
				if za, ok := auditLog.(*audit.ZapAudit); ok {
					za.EmitAsync(r.Context(), audit.EventAccess, audit.SeverityInfo,
						logger.ClientIP(ip),
						logger.Method(r.Method),
						logger.Path(r.URL.Path),
					)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// inspect corre las firmas sobre el raw query y el body (repuesto
// después de leerlo). Retorna el tipo de amenaza y false si hay match.
func inspect(r *http.Request) (kind string, ok bool) {
	if k, bad := scan(r.URL.RawQuery); bad {
		return k, false
	}

	if r.Body != nil && r.ContentLength != 0 {
		var buf bytes.Buffer
		_, _ = io.CopyN(&buf, r.Body, maxInspectBytes)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(buf.Bytes()))

		if k, bad := scan(buf.String()); bad {
			return k, false
		}
	}
	return "", true
}

func scan(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	switch {
	case threat.DetectSQLInjection(text):
		return "sql_injection", true
	case threat.DetectXSS(text):
		return "xss", true
	case threat.DetectPathTraversal(text):
		return "path_traversal", true
	}
	return "", false
}
