// Package errors define la taxonomía de errores de la API.
//
// Cada error lleva un `code` estable distinto del `message` legible:
// los clientes ramifican por code, nunca por texto (el wording puede
// localizarse). Los mensajes de autenticación son deliberadamente
// genéricos para no permitir enumeración de usuarios.
package errors

import (
	"fmt"
	"net/http"
)

// AppError es el error estándar de la aplicación.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int

	// Err causa original; va a logs, nunca al cliente.
	Err error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New crea un AppError.
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// WithCause agrega la causa. Devuelve una COPIA para no mutar los
// sentinels globales.
func (e *AppError) WithCause(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

// WithMessage reemplaza el mensaje. Devuelve una COPIA.
func (e *AppError) WithMessage(msg string) *AppError {
	c := *e
	c.Message = msg
	return &c
}

// FromError convierte cualquier error en AppError; lo desconocido se
// vuelve error interno genérico conservando la causa para logs.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

// =================================================================================
// ERRORES PREDEFINIDOS
// =================================================================================

// 400 - validación / input corregible por el usuario
var (
	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Request validation failed",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "Request body is not valid JSON",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingFields = &AppError{
		Code:       "MISSING_FIELDS",
		Message:    "Required fields are missing",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrWeakPassword = &AppError{
		Code:       "WEAK_PASSWORD",
		Message:    "Password does not meet the security policy",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrThreatDetected = &AppError{
		Code:       "MALICIOUS_INPUT",
		Message:    "Request rejected",
		HTTPStatus: http.StatusBadRequest,
	}
)

// 401 - autenticación. "Invalid credentials" es genérico a propósito:
// nunca revelar si falló el email o el password.
var (
	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid credentials",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpired = &AppError{
		Code:       "TOKEN_EXPIRED",
		Message:    "Token has expired",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenInvalid = &AppError{
		Code:       "TOKEN_INVALID",
		Message:    "Token is invalid or malformed",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenMissing = &AppError{
		Code:       "TOKEN_MISSING",
		Message:    "Authentication token required",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrMFARequired = &AppError{
		Code:       "MFA_REQUIRED",
		Message:    "Multi-factor authentication required",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrMFAInvalidCode = &AppError{
		Code:       "MFA_INVALID_CODE",
		Message:    "Invalid verification code",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// 403 - autorización / violaciones de seguridad
var (
	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Insufficient permissions",
		HTTPStatus: http.StatusForbidden,
	}

	ErrCSRF = &AppError{
		Code:       "CSRF_TOKEN_INVALID",
		Message:    "CSRF token missing or mismatch",
		HTTPStatus: http.StatusForbidden,
	}

	ErrIPBlocked = &AppError{
		Code:       "IP_BLOCKED",
		Message:    "Access denied",
		HTTPStatus: http.StatusForbidden,
	}

	ErrAccountDisabled = &AppError{
		Code:       "ACCOUNT_DISABLED",
		Message:    "Account is disabled",
		HTTPStatus: http.StatusForbidden,
	}
)

// 404
var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		HTTPStatus: http.StatusNotFound,
	}
)

// 409 - conflicto
var (
	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "Resource conflict",
		HTTPStatus: http.StatusConflict,
	}

	ErrUserExists = &AppError{
		Code:       "USER_EXISTS",
		Message:    "User already exists",
		HTTPStatus: http.StatusConflict,
	}
)

// 429 - rate limiting
var (
	ErrRateLimited = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please try again later",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// 5xx - no corregibles por el usuario
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrDatabase = &AppError{
		Code:       "DATABASE_ERROR",
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrExternalService = &AppError{
		Code:       "EXTERNAL_SERVICE_ERROR",
		Message:    "Upstream service failure",
		HTTPStatus: http.StatusBadGateway,
	}
)
