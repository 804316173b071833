package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorBody es la parte `error` del envelope de respuesta.
type ErrorBody struct {
	Message    string `json:"message"`
	Code       string `json:"code"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
}

// Envelope es la respuesta estándar de la API:
// { ok, data, error } — data y error son mutuamente excluyentes.
type Envelope struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// WriteOK escribe una respuesta exitosa con el envelope.
func WriteOK(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, Envelope{OK: true, Data: data})
}

// WriteError escribe el error con el envelope y el status del AppError.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)
	writeEnvelope(w, appErr.HTTPStatus, Envelope{
		OK: false,
		Error: &ErrorBody{
			Message:    appErr.Message,
			Code:       appErr.Code,
			StatusCode: appErr.HTTPStatus,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Path:       requestPath(r),
		},
	})
}

// WriteFail escribe un fallo de negocio con HTTP 200 y ok=false.
// Se usa en register/login donde el contrato con el cliente es 200 +
// envelope (el code sigue siendo la señal estable para ramificar).
func WriteFail(w http.ResponseWriter, r *http.Request, appErr *AppError) {
	writeEnvelope(w, http.StatusOK, Envelope{
		OK: false,
		Error: &ErrorBody{
			Message:    appErr.Message,
			Code:       appErr.Code,
			StatusCode: appErr.HTTPStatus,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Path:       requestPath(r),
		},
	})
}

func requestPath(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	return r.URL.Path
}
