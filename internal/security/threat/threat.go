// Package threat implementa detección heurística de firmas (SQLi, XSS,
// path traversal) y sanitización de HTML sobre strings no confiables.
//
// Limitación conocida y deliberada: esto es defensa en profundidad basada
// en regex, no un parser. Los falsos negativos son esperables; la defensa
// real contra SQLi son las queries parametrizadas del store.
package threat

import (
	"regexp"
	"strings"
)

// Firmas SQLi, en orden. Un solo match dispara positivo.
var sqlSignatures = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bunion(\s+all)?\s+select\b`),
	regexp.MustCompile(`(?i)\bselect\b[\s\S]+\bfrom\b`),
	regexp.MustCompile(`(?i)\b(insert\s+into|delete\s+from|update\s+\w+\s+set)\b`),
	regexp.MustCompile(`(?i)\b(drop|truncate)\s+(table|database)\b`),
	regexp.MustCompile(`(?i)'\s*(or|and)\s+['0-9]`),
	regexp.MustCompile(`(?i);\s*(drop|delete|update|insert|shutdown)\b`),
	regexp.MustCompile(`(?i)\b(exec(ute)?\s+\w|xp_cmdshell|information_schema)\b`),
	regexp.MustCompile(`(?i)\b(sleep|benchmark|waitfor)\s*\(`),
	regexp.MustCompile(`(--|/\*)`),
}

// Firmas XSS, en orden.
var xssSignatures = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)vbscript\s*:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)<\s*(iframe|object|embed|svg|meta|base)\b`),
	regexp.MustCompile(`(?i)expression\s*\(`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),
	regexp.MustCompile(`(?i)document\s*\.\s*(cookie|write)`),
	regexp.MustCompile(`(?i)window\s*\.\s*location`),
}

// Firmas de path traversal.
var traversalSignatures = []*regexp.Regexp{
	regexp.MustCompile(`\.\.[/\\]`),
	regexp.MustCompile(`(?i)%2e%2e`),
	regexp.MustCompile(`\x00`),
	regexp.MustCompile(`(?i)(/etc/passwd|/etc/shadow|boot\.ini|win\.ini)`),
}

// DetectSQLInjection aplica las firmas SQLi sobre el string completo.
func DetectSQLInjection(text string) bool {
	return matchAny(text, sqlSignatures)
}

// DetectXSS aplica las firmas XSS sobre el string completo.
func DetectXSS(text string) bool {
	return matchAny(text, xssSignatures)
}

// DetectPathTraversal aplica las firmas de traversal.
func DetectPathTraversal(text string) bool {
	return matchAny(text, traversalSignatures)
}

func matchAny(text string, sigs []*regexp.Regexp) bool {
	if text == "" {
		return false
	}
	for _, re := range sigs {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// =================================================================================
// SANITIZER
// =================================================================================

var (
	stripPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)javascript\s*:`),
		regexp.MustCompile(`(?i)vbscript\s*:`),
		regexp.MustCompile(`(?i)data\s*:`),
		regexp.MustCompile(`(?i)\bon\w+\s*=`),
		regexp.MustCompile(`(?i)expression\s*\(`),
	}

	// Entidades que el propio sanitizer emite; se preservan para que
	// sanitizar dos veces sea un no-op.
	ownEntityRe = regexp.MustCompile(`&(amp|lt|gt|quot|#x27|#x2F);`)

	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
		"/", "&#x2F;",
	)
)

// SanitizeHTML escapa &<>"'/ y elimina esquemas peligrosos, handlers
// inline y expression(). Idempotente: sanitizar salida ya sanitizada
// no la modifica.
func SanitizeHTML(text string) string {
	// strip hasta punto fijo: eliminar un patrón puede descubrir otro
	for i := 0; i < 4; i++ {
		next := text
		for _, re := range stripPatterns {
			next = re.ReplaceAllString(next, "")
		}
		if next == text {
			break
		}
		text = next
	}
	return escapePreservingEntities(text)
}

// escapePreservingEntities escapa todo salvo las entidades ya emitidas
// por este sanitizer.
func escapePreservingEntities(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		loc := ownEntityRe.FindStringIndex(s)
		if loc == nil {
			b.WriteString(escaper.Replace(s))
			break
		}
		b.WriteString(escaper.Replace(s[:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		s = s[loc[1]:]
	}
	return b.String()
}

// =================================================================================
// FILE VALIDATION
// =================================================================================

// FileInfo describe un upload a validar.
type FileInfo struct {
	Name string
	Size int64
	MIME string
}

// FileRules configura la validación de uploads.
type FileRules struct {
	MaxBytes    int64
	AllowedMIME []string
	AllowedExts []string // con punto: ".jpg"
}

// ValidateFile chequea tamaño, MIME, extensión, traversal y extensiones
// múltiples. Reporta todas las violaciones.
func ValidateFile(f FileInfo, rules FileRules) (ok bool, errs []string) {
	if f.Name == "" {
		return false, []string{"missing_filename"}
	}
	if rules.MaxBytes > 0 && f.Size > rules.MaxBytes {
		errs = append(errs, "too_large")
	}
	if len(rules.AllowedMIME) > 0 && !containsFold(rules.AllowedMIME, f.MIME) {
		errs = append(errs, "mime_not_allowed")
	}
	if DetectPathTraversal(f.Name) || strings.ContainsAny(f.Name, `/\`) {
		errs = append(errs, "path_traversal")
	}

	parts := strings.Split(f.Name, ".")
	switch {
	case len(parts) < 2:
		errs = append(errs, "missing_extension")
	case len(parts) > 2:
		// "foo.php.jpg" y similares
		errs = append(errs, "multiple_extensions")
	default:
		ext := "." + strings.ToLower(parts[1])
		if len(rules.AllowedExts) > 0 && !containsFold(rules.AllowedExts, ext) {
			errs = append(errs, "ext_not_allowed")
		}
	}
	return len(errs) == 0, errs
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
