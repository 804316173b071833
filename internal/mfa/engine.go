// Package mfa compone los mecanismos de segundo factor: TOTP, códigos
// OTP por email y códigos de recuperación. También expone el predicado
// de política que decide cuándo exigir MFA.
package mfa

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dcruzado/vitrina/internal/cache"
	"github.com/dcruzado/vitrina/internal/security/otp"
	"github.com/dcruzado/vitrina/internal/security/totp"
)

var (
	ErrOTPNotFound = errors.New("mfa: otp not found or expired")
	ErrOTPMismatch = errors.New("mfa: otp mismatch")
)

// Policy decide para qué roles/acciones es obligatorio MFA.
type Policy struct {
	requiredRoles map[string]struct{}
	requiredActs  map[string]struct{}

	// AdminMandate fuerza MFA para el rol admin sin importar el resto.
	AdminMandate bool
}

func NewPolicy(roles, actions []string, adminMandate bool) Policy {
	p := Policy{
		requiredRoles: make(map[string]struct{}, len(roles)),
		requiredActs:  make(map[string]struct{}, len(actions)),
		AdminMandate:  adminMandate,
	}
	for _, r := range roles {
		p.requiredRoles[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	for _, a := range actions {
		p.requiredActs[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	return p
}

// IsRequired retorna true si el rol está en el set de roles requeridos,
// la acción está en el set de acciones requeridas, o el rol es admin y
// el mandato global de admin-MFA está activo.
func (p Policy) IsRequired(role, action string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	action = strings.ToLower(strings.TrimSpace(action))

	if p.AdminMandate && role == "admin" {
		return true
	}
	if _, ok := p.requiredRoles[role]; ok {
		return true
	}
	if action != "" {
		if _, ok := p.requiredActs[action]; ok {
			return true
		}
	}
	return false
}

// Engine es el motor de MFA. El estado de challenges OTP vive en cache
// con TTL; los secretos TOTP y los hashes de recovery codes los persiste
// el caller junto al usuario.
type Engine struct {
	Store      cache.Client
	Policy     Policy
	TOTPIssuer string
	TOTPWindow int
	OTPTTL     time.Duration

	// RecoveryCount códigos por lote de enrollment.
	RecoveryCount int
}

type Options struct {
	Store         cache.Client
	Policy        Policy
	TOTPIssuer    string
	TOTPWindow    int
	OTPTTL        time.Duration
	RecoveryCount int
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		Store:         opts.Store,
		Policy:        opts.Policy,
		TOTPIssuer:    opts.TOTPIssuer,
		TOTPWindow:    opts.TOTPWindow,
		OTPTTL:        opts.OTPTTL,
		RecoveryCount: opts.RecoveryCount,
	}
	if e.TOTPIssuer == "" {
		e.TOTPIssuer = "Vitrina"
	}
	if e.TOTPWindow <= 0 {
		e.TOTPWindow = 1
	}
	if e.OTPTTL <= 0 {
		e.OTPTTL = 10 * time.Minute
	}
	if e.RecoveryCount <= 0 {
		e.RecoveryCount = 10
	}
	return e
}

// =================================================================================
// TOTP
// =================================================================================

// Enrollment es el material que se entrega UNA vez al usuario en setup.
// Los códigos en claro no se vuelven a mostrar; solo se persisten los
// hashes.
type Enrollment struct {
	Secret         string
	OTPAuthURL     string
	RecoveryCodes  []string
	RecoveryHashes []string
}

// SetupTOTP genera el secreto compartido, la URL otpauth para el QR y el
// lote de recovery codes.
func (e *Engine) SetupTOTP(accountName string) (*Enrollment, error) {
	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	codes, err := otp.GenerateRecoveryCodes(e.RecoveryCount)
	if err != nil {
		return nil, err
	}
	return &Enrollment{
		Secret:         secret,
		OTPAuthURL:     totp.OTPAuthURL(e.TOTPIssuer, accountName, secret),
		RecoveryCodes:  codes,
		RecoveryHashes: otp.HashRecoveryCodes(codes),
	}, nil
}

// VerifyTOTP valida un código contra el secreto con la ventana de drift
// configurada.
func (e *Engine) VerifyTOTP(secret, code string) bool {
	return totp.Verify(secret, code, e.TOTPWindow)
}

// =================================================================================
// OTP POR EMAIL
// =================================================================================

func otpKey(identifier string) string {
	return "otp:" + strings.ToLower(strings.TrimSpace(identifier))
}

// IssueOTP genera un código numérico de 6 dígitos y lo guarda con TTL.
// Emitir de nuevo pisa el código anterior: uno activo por identificador.
func (e *Engine) IssueOTP(ctx context.Context, identifier string) (string, error) {
	code, err := otp.GenerateNumeric()
	if err != nil {
		return "", err
	}
	if err := e.Store.Set(ctx, otpKey(identifier), code, e.OTPTTL); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyOTP compara el código presentado con el emitido y lo consume en
// caso de éxito. Un código expirado o nunca emitido da ErrOTPNotFound.
func (e *Engine) VerifyOTP(ctx context.Context, identifier, code string) error {
	if !otp.ValidFormat(code) {
		return ErrOTPMismatch
	}
	stored, err := e.Store.Get(ctx, otpKey(identifier))
	if err != nil {
		if cache.IsNotFound(err) {
			return ErrOTPNotFound
		}
		return err
	}
	if !otp.Equal(stored, code) {
		return ErrOTPMismatch
	}
	// consumir: un solo uso
	return e.Store.Delete(ctx, otpKey(identifier))
}

// =================================================================================
// RECOVERY CODES
// =================================================================================

// VerifyRecovery chequea membresía contra los hashes del usuario. La
// verificación es pura: el caller marca el índice devuelto como
// consumido (blanqueando el hash) para sostener el invariante de un
// solo uso.
func (e *Engine) VerifyRecovery(code string, hashedCodes []string) (ok bool, index int) {
	return otp.VerifyRecoveryCode(code, hashedCodes)
}
