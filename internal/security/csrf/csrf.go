// Package csrf implementa el guard CSRF: un token aleatorio por sesión
// que el cliente repite en un header custom en requests que mutan estado.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/dcruzado/vitrina/internal/cache"
)

// TokenBytes es la entropía del token (32 hex chars).
const TokenBytes = 16

// HeaderName es el header custom donde el cliente repite el token.
const HeaderName = "X-CSRF-Token"

// GenerateToken retorna un token hex aleatorio.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ValidateToken compara candidato contra el guardado en tiempo constante.
// Token ausente o largo distinto es inválido, nunca error.
func ValidateToken(candidate, stored string) bool {
	if candidate == "" || stored == "" || len(candidate) != len(stored) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(stored)) == 1
}

// Guard asocia tokens a sesiones con TTL fijo en el cache inyectado.
// Invariante: exactamente un token activo por sesión (Issue pisa el anterior).
type Guard struct {
	Store cache.Client
	TTL   time.Duration
}

func NewGuard(store cache.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Guard{Store: store, TTL: ttl}
}

func (g *Guard) key(sessionID string) string { return "csrf:" + sessionID }

// Issue genera y guarda el token de la sesión, reemplazando el anterior.
func (g *Guard) Issue(ctx context.Context, sessionID string) (string, error) {
	tok, err := GenerateToken()
	if err != nil {
		return "", err
	}
	if err := g.Store.Set(ctx, g.key(sessionID), tok, g.TTL); err != nil {
		return "", err
	}
	return tok, nil
}

// Validate chequea el candidato contra el token activo de la sesión.
func (g *Guard) Validate(ctx context.Context, sessionID, candidate string) bool {
	stored, err := g.Store.Get(ctx, g.key(sessionID))
	if err != nil {
		return false
	}
	return ValidateToken(candidate, stored)
}
