package password

import (
	"strings"
	"unicode"
)

// Policy valida fuerza de contraseñas. Reporta TODAS las reglas violadas,
// no solo la primera, para que el frontend pueda mostrarlas juntas.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool

	// MaxRepeat rechaza n o más caracteres idénticos consecutivos (0 = off).
	MaxRepeat int

	// CommonPatterns se rechazan como substring case-insensitive.
	CommonPatterns []string
}

// DefaultPolicy es el perfil estándar del storefront.
var DefaultPolicy = Policy{
	MinLength:      12,
	RequireUpper:   true,
	RequireLower:   true,
	RequireDigit:   true,
	RequireSymbol:  true,
	MaxRepeat:      3,
	CommonPatterns: []string{"123", "abc", "password", "admin", "qwerty"},
}

// Validate chequea s contra la política. Para input vacío retorna
// ok=false sin razones (nunca panic).
func (p Policy) Validate(s string) (ok bool, reasons []string) {
	if s == "" {
		return false, nil
	}
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	if p.MaxRepeat > 0 && hasRepeatedRun(s, p.MaxRepeat) {
		reasons = append(reasons, "repeated_chars")
	}
	if p.matchesCommonPattern(s) {
		reasons = append(reasons, "common_pattern")
	}
	return len(reasons) == 0, reasons
}

// hasRepeatedRun detecta n caracteres idénticos consecutivos.
func hasRepeatedRun(s string, n int) bool {
	run := 1
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}

func (p Policy) matchesCommonPattern(s string) bool {
	low := strings.ToLower(s)
	for _, pat := range p.CommonPatterns {
		if pat != "" && strings.Contains(low, strings.ToLower(pat)) {
			return true
		}
	}
	return false
}
