// Package http arma el router y el servidor de la API.
//
// Pipeline por request (de afuera hacia adentro):
//
//	recover -> request id -> logging -> metrics -> security headers ->
//	cors -> ip check -> rate limit -> threat detection -> csrf -> handler
//
// Cualquier etapa corta con su rechazo (403 IP/CSRF, 429 rate, 400
// patrones) y lo audita antes de responder.
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dcruzado/vitrina/internal/audit"
	"github.com/dcruzado/vitrina/internal/http/handlers"
	"github.com/dcruzado/vitrina/internal/http/middlewares"
	"github.com/dcruzado/vitrina/internal/jwt"
	"github.com/dcruzado/vitrina/internal/observability/metrics"
	"github.com/dcruzado/vitrina/internal/rate"
	"github.com/dcruzado/vitrina/internal/security/csrf"
)

// RouterConfig agrupa todo lo que el router necesita.
type RouterConfig struct {
	Handlers *handlers.Handlers
	Issuer   *jwt.Issuer
	Guard    *csrf.Guard
	Audit    audit.Logger

	// Limiter global por IP+UA; Max solo para el header X-RateLimit-Limit.
	Limiter rate.Limiter
	RateMax int64

	BlockedIPs     []string
	AllowedOrigins []string

	// MetricsHandler sirve /metrics (nil lo deshabilita).
	MetricsHandler stdhttp.Handler

	Dev bool
}

// NewRouter arma el chi.Router con el pipeline completo.
func NewRouter(cfg RouterConfig) stdhttp.Handler {
	h := cfg.Handlers
	r := chi.NewRouter()

	r.Use(middlewares.WithRecover(cfg.Dev))
	r.Use(middlewares.WithRequestID())
	r.Use(middlewares.WithLogging())
	r.Use(metrics.WithMetrics)
	r.Use(middlewares.WithSecurityHeaders())
	r.Use(middlewares.WithCORS(cfg.AllowedOrigins))
	r.Use(middlewares.WithIPCheck(cfg.BlockedIPs, cfg.Audit))
	r.Use(middlewares.WithRateLimit(middlewares.RateLimitConfig{
		Limiter: cfg.Limiter,
		Max:     cfg.RateMax,
		Audit:   cfg.Audit,
	}))
	r.Use(middlewares.WithThreatDetection(cfg.Audit))
	r.Use(middlewares.WithCSRF(cfg.Guard, cfg.Audit))

	r.Get("/healthz", h.Healthz)
	if cfg.MetricsHandler != nil {
		r.Method(stdhttp.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/csrf-token", h.CSRFToken)

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)

		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/verify-otp", h.VerifyOTP)

		r.Post("/mfa/verify", h.MFAVerify)
		r.Post("/mfa/recovery", h.MFARecovery)

		// enrollment requiere sesión autenticada
		r.Group(func(r chi.Router) {
			r.Use(middlewares.WithAuth(cfg.Issuer))
			r.Post("/mfa/setup", h.MFASetup)
			r.Post("/mfa/enable", h.MFAEnable)
		})

		r.Get("/oauth/google", h.OAuthStart("google"))
		r.Get("/oauth/google/callback", h.OAuthCallback("google"))
		r.Get("/oauth/facebook", h.OAuthStart("facebook"))
		r.Get("/oauth/facebook/callback", h.OAuthCallback("facebook"))
	})

	r.Route("/api/uploads", func(r chi.Router) {
		r.Use(middlewares.WithAuth(cfg.Issuer))
		r.Post("/validate", h.ValidateUpload)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middlewares.WithAuth(cfg.Issuer))
		r.Use(middlewares.RequireRole("admin", "owner"))
		r.Post("/rate-limit/clear", h.ClearRateLimit)
	})

	return r
}
