// Package otp genera y verifica códigos one-time numéricos (SMS/email)
// y códigos de recuperación de un solo uso.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/dcruzado/vitrina/internal/security/token"
)

// NumericDigits es el largo de los códigos SMS/email.
const NumericDigits = 6

var numericRe = regexp.MustCompile(`^[0-9]{6}$`)

// GenerateNumeric genera un código numérico de 6 dígitos con fuente
// criptográficamente segura, con zero-padding.
func GenerateNumeric() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ValidFormat chequea el formato de un código numérico (server-side la
// verificación es igualdad simple contra el código emitido).
func ValidFormat(code string) bool {
	return numericRe.MatchString(strings.TrimSpace(code))
}

// Equal compara dos códigos en tiempo constante.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(a)), []byte(strings.TrimSpace(b))) == 1
}

// =================================================================================
// RECOVERY CODES
// =================================================================================

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateRecoveryCodes genera un lote de códigos "XXXXX-XXXXX" (base32).
// Se generan una sola vez por usuario; cada uno vale para un solo uso.
func GenerateRecoveryCodes(count int) ([]string, error) {
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		raw := make([]byte, 8)
		if _, err := rand.Read(raw); err != nil {
			return nil, err
		}
		s := b32.EncodeToString(raw) // 13 chars
		out = append(out, s[:5]+"-"+s[5:10])
	}
	return out, nil
}

// HashRecoveryCode normaliza y hashea un código para almacenamiento.
func HashRecoveryCode(code string) string {
	return token.SHA256Hex(normalizeRecovery(code))
}

// HashRecoveryCodes hashea el lote completo.
func HashRecoveryCodes(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = HashRecoveryCode(c)
	}
	return out
}

// VerifyRecoveryCode chequea membresía contra los hashes guardados.
// Es una función pura: retorna el índice del código que matcheó para que
// el CALLER lo marque consumido (invariante de un solo uso).
func VerifyRecoveryCode(code string, hashedCodes []string) (ok bool, index int) {
	h := HashRecoveryCode(code)
	index = -1
	// recorrer todo siempre, sin early-exit
	for i, stored := range hashedCodes {
		if stored != "" && subtle.ConstantTimeCompare([]byte(h), []byte(stored)) == 1 && index == -1 {
			index = i
		}
	}
	return index >= 0, index
}

func normalizeRecovery(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	return strings.ReplaceAll(s, "-", "")
}
