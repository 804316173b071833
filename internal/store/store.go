// Package store persiste usuarios y sus credenciales.
//
// Backends:
//   - memory: map protegido por mutex (desarrollo, tests)
//   - postgres: pgxpool
//
// El password hash, el secreto TOTP y los hashes de recovery codes
// viven en el registro del usuario; los tokens y el estado de rate
// limit son efímeros y NO se persisten acá.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("store: user not found")
	ErrDuplicate = errors.New("store: email already registered")
)

// User es el registro persistido. Credencial y material MFA son
// propiedad del usuario; se crean en acciones explícitas de setup.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         string

	// IDs de proveedores sociales (vacíos si no vinculados).
	GoogleID   string
	FacebookID string

	// Material MFA. TOTPSecret en base32; RecoveryHashes son SHA-256
	// hex, un hash blanqueado = código consumido.
	TOTPSecret     string
	RecoveryHashes []string
	MFAEnabled     bool

	Disabled  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository define las operaciones sobre usuarios.
type Repository interface {
	// Create inserta el usuario. Email duplicado → ErrDuplicate.
	Create(ctx context.Context, u *User) error

	// GetByEmail busca por email (case-insensitive). → ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID busca por id. → ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByProviderID busca por id de proveedor social
	// ("google" | "facebook"). → ErrNotFound.
	GetByProviderID(ctx context.Context, provider, providerID string) (*User, error)

	// UpdatePasswordHash reemplaza el hash (cambio de password o
	// upgrade de costo bcrypt en login).
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error

	// UpdateMFA guarda secreto TOTP, hashes de recovery y el flag.
	UpdateMFA(ctx context.Context, id uuid.UUID, totpSecret string, recoveryHashes []string, enabled bool) error

	// ConsumeRecoveryCode blanquea el hash en index (un solo uso).
	ConsumeRecoveryCode(ctx context.Context, id uuid.UUID, index int) error

	// LinkProvider asocia un id de proveedor social al usuario.
	LinkProvider(ctx context.Context, id uuid.UUID, provider, providerID string) error

	Ping(ctx context.Context) error
	Close()
}

// Config para el factory.
type Config struct {
	Kind string // "memory" | "postgres"
	DSN  string
}

// New crea el repositorio según configuración.
func New(ctx context.Context, cfg Config) (Repository, error) {
	switch cfg.Kind {
	case "postgres":
		return NewPostgres(ctx, cfg.DSN)
	default:
		return NewMemory(), nil
	}
}
