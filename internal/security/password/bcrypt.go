package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost es el factor de costo actual de la política. Hashes guardados con
// costo menor se consideran elegibles para rehash online.
const Cost = 12

// Hash aplica bcrypt con salt por-hash y el costo de la política.
func Hash(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("empty password")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compara en tiempo constante usando la primitiva de bcrypt.
// Nunca implementar comparación propia para esto.
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NeedsRehash indica si el hash guardado quedó por debajo del costo
// mínimo actual (soporta upgrade en el próximo login exitoso).
func NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return c < Cost
}
