// Package email envía los correos transaccionales del flujo de auth
// (OTP de verificación, reset de password).
package email

import "context"

// Sender envía un email. Implementaciones: SMTP y log (dev).
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}
