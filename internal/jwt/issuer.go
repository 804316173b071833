// Package jwt emite y verifica los access/refresh tokens del storefront.
//
// Los tokens son HS256 con secretos separados por tipo, leídos de env en
// el momento de uso (JWT_ACCESS_SECRET / JWT_REFRESH_SECRET). Un secreto
// ausente es error de configuración fatal y sincrónico, nunca un default
// silencioso.
package jwt

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distingue access de refresh. Cada tipo firma con su secreto, así
// un refresh token nunca valida como access ni viceversa.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

// Errores de verificación. Los callers branchean por valor, nunca por
// texto del mensaje.
var (
	ErrTokenExpired = errors.New("jwt: token expired")
	ErrTokenInvalid = errors.New("jwt: invalid token")
	ErrNoSecret     = errors.New("jwt: signing secret not configured")
)

// Claims son las claims de vitrina sobre las registradas.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Kind   string `json:"kind"`
	jwtv5.RegisteredClaims
}

// Payload es lo que el caller aporta al emitir.
type Payload struct {
	UserID string
	Email  string
	Role   string
}

// Issuer emite tokens firmados. Stateless por llamada: no guarda nada,
// la rotación la decide el caller con NearExpiry.
type Issuer struct {
	Iss        string
	Aud        string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// RotationThreshold es la fracción de vida consumida a partir de la
	// cual un access token es elegible para reemisión silenciosa.
	RotationThreshold float64

	// now es inyectable para tests.
	now func() time.Time
}

func NewIssuer(iss, aud string, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{
		Iss:               iss,
		Aud:               aud,
		AccessTTL:         accessTTL,
		RefreshTTL:        refreshTTL,
		RotationThreshold: 0.8,
		now:               time.Now,
	}
}

func (i *Issuer) clock() time.Time {
	if i.now != nil {
		return i.now()
	}
	return time.Now()
}

// envVarFor mapea tipo de token a su variable de entorno.
func envVarFor(kind Kind) string {
	if kind == Refresh {
		return "JWT_REFRESH_SECRET"
	}
	return "JWT_ACCESS_SECRET"
}

// secretFor lee el secreto en el punto de uso.
func secretFor(kind Kind) ([]byte, error) {
	v := strings.TrimSpace(os.Getenv(envVarFor(kind)))
	if v == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSecret, envVarFor(kind))
	}
	return []byte(v), nil
}

// GenerateAccessToken emite un access token de vida corta.
func (i *Issuer) GenerateAccessToken(p Payload) (string, error) {
	return i.generate(p, Access, i.AccessTTL)
}

// GenerateRefreshToken emite un refresh token de vida larga.
func (i *Issuer) GenerateRefreshToken(p Payload) (string, error) {
	return i.generate(p, Refresh, i.RefreshTTL)
}

func (i *Issuer) generate(p Payload, kind Kind, ttl time.Duration) (string, error) {
	secret, err := secretFor(kind)
	if err != nil {
		return "", err
	}
	now := i.clock().UTC()
	claims := Claims{
		UserID: p.UserID,
		Email:  p.Email,
		Role:   p.Role,
		Kind:   string(kind),
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Audience:  jwtv5.ClaimStrings{i.Aud},
			Subject:   p.UserID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return tk.SignedString(secret)
}

// VerifyToken valida firma, exp/nbf, iss y aud, y que el token sea del
// tipo pedido. Distingue expiración de forgery por valor de error.
func (i *Issuer) VerifyToken(token string, kind Kind) (*Claims, error) {
	secret, err := secretFor(kind)
	if err != nil {
		return nil, err
	}

	keyfunc := func(t *jwtv5.Token) (any, error) { return secret, nil }

	var claims Claims
	tok, err := jwtv5.ParseWithClaims(token, &claims, keyfunc,
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithAudience(i.Aud),
		jwtv5.WithTimeFunc(i.clock),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tok.Valid || claims.Kind != string(kind) {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

// NearExpiry indica si el token consumió la fracción de vida configurada
// y es elegible para reemisión silenciosa. El issuer no fuerza rotación;
// solo expone el chequeo.
func (i *Issuer) NearExpiry(c *Claims) bool {
	if i.RotationThreshold <= 0 || c == nil || c.IssuedAt == nil || c.ExpiresAt == nil {
		return false
	}
	life := c.ExpiresAt.Sub(c.IssuedAt.Time)
	if life <= 0 {
		return true
	}
	consumed := i.clock().Sub(c.IssuedAt.Time)
	return float64(consumed) >= i.RotationThreshold*float64(life)
}
