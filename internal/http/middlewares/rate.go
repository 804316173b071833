package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dcruzado/vitrina/internal/audit"
	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/observability/logger"
	"github.com/dcruzado/vitrina/internal/observability/metrics"
	"github.com/dcruzado/vitrina/internal/rate"
)

// RateLimitConfig configura el middleware de rate limiting.
type RateLimitConfig struct {
	Limiter rate.Limiter
	Max     int64

	// KeyFunc deriva el identificador del cliente. Default: IP + UA.
	KeyFunc func(*http.Request) string

	Audit audit.Logger
}

// WithRateLimit aplica ventana fija por identificador. Respuestas
// limitadas llevan Retry-After y los headers X-RateLimit-*.
// Si el limiter falla (p.ej. redis caído) el request pasa: preferimos
// disponibilidad a bloquear todo el tráfico.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	keyFn := cfg.KeyFunc
	if keyFn == nil {
		keyFn = RateKey
	}
	return func(next http.Handler) http.Handler {
		if cfg.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// healthz/metrics no cuentan
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFn(r)
			res, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter error", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			if cfg.Max > 0 {
				h.Set("X-RateLimit-Limit", strconv.FormatInt(cfg.Max, 10))
			}
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if res.WindowTTL > 0 {
				resetAt := time.Now().Add(res.WindowTTL).Unix()
				h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
			}

			if !res.Allowed {
				retry := res.RetryAfter
				if retry <= 0 {
					retry = time.Second
				}
				h.Set("Retry-After", strconv.Itoa(int(retry.Seconds()+0.5)))

				metrics.RecordSecurityReject("rate_limit")
				if cfg.Audit != nil {
					cfg.Audit.Emit(r.Context(), audit.EventRateLimitReject, audit.SeverityWarning,
						logger.Identifier(key),
						logger.Path(r.URL.Path),
						logger.Int("current_hits", int(res.CurrentHits)),
					)
				}
				httperr.WriteError(w, r, httperr.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
