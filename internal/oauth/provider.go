// Package oauth define el contrato común de los proveedores de login
// social. Cada proveedor vive en su propio subpaquete.
package oauth

import "context"

// Profile es el perfil normalizado que devuelve cualquier proveedor.
type Profile struct {
	ProviderID string
	Email      string
	Name       string
	Picture    string
}

// Provider es un cliente OAuth 2.0 de login social: intercambio de
// código por token y fetch del perfil.
type Provider interface {
	Name() string
	AuthURL(ctx context.Context, state string) (string, error)
	Exchange(ctx context.Context, code string) (accessToken string, err error)
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}
