// Package token genera tokens opacos (challenges MFA, state OAuth) y
// sus digests para usarlos como keys de cache.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// opaqueBytes es la entropía de un token opaco (256 bits).
const opaqueBytes = 32

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin
// padding). El valor viaja al cliente; server-side solo se guarda su
// digest.
func GenerateOpaqueToken() (string, error) {
	b := make([]byte, opaqueBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Hex devuelve sha256(input) en hexadecimal.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum)
}
