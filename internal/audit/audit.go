// Package audit emite eventos de seguridad estructurados (intentos de
// auth, violaciones, acciones de admin) hacia el sink de logging.
// Los eventos son write-once: se emiten y no se mutan.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dcruzado/vitrina/internal/observability/logger"
)

// Severity clasifica el evento.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Eventos conocidos. Los handlers y el middleware usan estas constantes
// para que los dashboards puedan filtrar por nombre estable.
const (
	EventLoginSuccess    = "auth.login.success"
	EventLoginFailure    = "auth.login.failure"
	EventRegister        = "auth.register"
	EventTokenRefresh    = "auth.token.refresh"
	EventLogout          = "auth.logout"
	EventPasswordReset   = "auth.password.reset"
	EventMFASetup        = "auth.mfa.setup"
	EventMFAVerify       = "auth.mfa.verify"
	EventMFAFailure      = "auth.mfa.failure"
	EventOAuthLogin      = "auth.oauth.login"
	EventRateLimitReject = "security.rate_limit.reject"
	EventThreatDetected  = "security.threat.detected"
	EventCSRFReject      = "security.csrf.reject"
	EventIPBlocked       = "security.ip.blocked"
	EventAdminOverride   = "admin.override"
	EventAccess          = "http.access"
)

// Logger emite eventos de auditoría. Implementación por defecto sobre
// zap; la interfaz existe para poder colgar un sink a DB/externo después
// sin tocar a los callers.
type Logger interface {
	Emit(ctx context.Context, event string, severity Severity, fields ...zap.Field)
}

// ZapAudit escribe al logger estructurado global bajo el namespace
// "audit".
type ZapAudit struct{}

func New() *ZapAudit { return &ZapAudit{} }

func (a *ZapAudit) Emit(ctx context.Context, event string, severity Severity, fields ...zap.Field) {
	l := logger.From(ctx).Named("audit").With(
		logger.Event(event),
		logger.Severity(string(severity)),
	)
	switch severity {
	case SeverityCritical:
		l.Error("security event", fields...)
	case SeverityWarning:
		l.Warn("security event", fields...)
	default:
		l.Info("security event", fields...)
	}
}

// EmitAsync despacha el evento en una goroutine para no bloquear la
// respuesta (acceso pass-through del middleware). El logger de zap es
// seguro para uso concurrente.
func (a *ZapAudit) EmitAsync(ctx context.Context, event string, severity Severity, fields ...zap.Field) {
	go a.Emit(context.WithoutCancel(ctx), event, severity, fields...)
}
