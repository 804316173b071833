// Package handlers implementa los route handlers de la API de auth.
// Los handlers reciben sus dependencias por struct (Deps) y escriben
// siempre el envelope estándar.
package handlers

import (
	"github.com/dcruzado/vitrina/internal/audit"
	"github.com/dcruzado/vitrina/internal/cache"
	"github.com/dcruzado/vitrina/internal/email"
	"github.com/dcruzado/vitrina/internal/jwt"
	"github.com/dcruzado/vitrina/internal/mfa"
	"github.com/dcruzado/vitrina/internal/oauth"
	"github.com/dcruzado/vitrina/internal/rate"
	"github.com/dcruzado/vitrina/internal/security/csrf"
	"github.com/dcruzado/vitrina/internal/security/password"
	"github.com/dcruzado/vitrina/internal/security/threat"
	"github.com/dcruzado/vitrina/internal/store"
)

// Deps agrupa las dependencias de todos los handlers.
type Deps struct {
	Store  store.Repository
	Cache  cache.Client
	Issuer *jwt.Issuer
	MFA    *mfa.Engine
	CSRF   *csrf.Guard

	Policy    password.Policy
	Blacklist *password.Blacklist

	// AuthFailures cuenta logins fallidos por identificador con un
	// umbral más estricto que el rate limit global.
	AuthFailures *rate.AuthFailures

	// Limiter es el limiter global, expuesto acá para el override de
	// admin (clear).
	Limiter rate.Limiter

	// Upload son las reglas del pre-flight de uploads.
	Upload threat.FileRules

	Audit audit.Logger
	Email email.Sender

	// Providers de login social, por nombre ("google", "facebook").
	Providers map[string]oauth.Provider
}

// Handlers expone los endpoints.
type Handlers struct {
	d Deps
}

func New(d Deps) *Handlers {
	return &Handlers{d: d}
}
