package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	httperr "github.com/dcruzado/vitrina/internal/http/errors"
)

// readJSON decodifica el body de forma tolerante (NO falla por campos
// desconocidos). Valida Content-Type y limita el body a 1MB.
// En fallo escribe la respuesta de error y retorna false.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		httperr.WriteError(w, r, httperr.ErrInvalidJSON.WithMessage("Content-Type must be application/json"))
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		httperr.WriteError(w, r, httperr.ErrInvalidJSON)
		return false
	}
	return true
}
