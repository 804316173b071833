package middlewares

import "net/http"

// WithSecurityHeaders inyecta las cabeceras de defensa en TODA
// respuesta. No toca Cache-Control (eso lo maneja cada handler
// sensible a tokens).
func WithSecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			h.Set("Referrer-Policy", "no-referrer")
			h.Set("X-Content-Type-Options", "nosniff")

			// Clickjacking
			h.Set("X-Frame-Options", "DENY")

			// CSP estricta para API (no servimos HTML acá)
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'self'")

			// Superficies no usadas por una API
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")

			// HSTS en toda respuesta; los clientes http lo ignoran
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")

			next.ServeHTTP(w, r)
		})
	}
}
