package middlewares

import (
	"net/http"

	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/observability/logger"
)

// WithRecover convierte pánicos en 500 con el envelope estándar.
// El detalle va al log server-side; al cliente solo en dev.
func WithRecover(dev bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Any("recover", rec),
						logger.Path(r.URL.Path),
					)
					appErr := httperr.ErrInternal
					if dev {
						if err, ok := rec.(error); ok {
							appErr = appErr.WithMessage(err.Error())
						}
					}
					httperr.WriteError(w, r, appErr)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
