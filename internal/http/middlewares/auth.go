package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	httperr "github.com/dcruzado/vitrina/internal/http/errors"
	"github.com/dcruzado/vitrina/internal/jwt"
)

type claimsKey struct{}

// GetClaims retorna los claims del access token validado, o nil.
func GetClaims(ctx context.Context) *jwt.Claims {
	if c, ok := ctx.Value(claimsKey{}).(*jwt.Claims); ok {
		return c
	}
	return nil
}

// BearerToken extrae el token del header Authorization, o "".
func BearerToken(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(ah) > 7 && strings.EqualFold(ah[:7], "bearer ") {
		return strings.TrimSpace(ah[7:])
	}
	return ""
}

// WithAuth exige un access token válido y deja los claims en contexto.
// Distingue expirado de inválido en el code de la respuesta.
func WithAuth(issuer *jwt.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r)
			if tok == "" {
				httperr.WriteError(w, r, httperr.ErrTokenMissing)
				return
			}
			claims, err := issuer.VerifyToken(tok, jwt.Access)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					httperr.WriteError(w, r, httperr.ErrTokenExpired)
				} else {
					httperr.WriteError(w, r, httperr.ErrTokenInvalid)
				}
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole corta con 403 si el rol autenticado no está en la lista.
func RequireRole(roles ...string) Middleware {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToLower(role)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				httperr.WriteError(w, r, httperr.ErrTokenMissing)
				return
			}
			if _, ok := allowed[strings.ToLower(claims.Role)]; !ok {
				httperr.WriteError(w, r, httperr.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
