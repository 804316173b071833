package threat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSQLInjection(t *testing.T) {
	positives := []string{
		"1' OR '1'='1",
		"x; DROP TABLE users",
		"UNION SELECT password FROM users",
		"select id from orders where 1=1",
		"admin'--",
		"1); waitfor (delay",
		"insert into carts values",
	}
	for _, p := range positives {
		assert.True(t, DetectSQLInjection(p), "should flag %q", p)
	}

	negatives := []string{
		"",
		"hola mundo",
		"producto con descuento del 30%",
		"me gusta seleccionar frutas", // heurística: sin keywords SQL reales
	}
	for _, n := range negatives {
		assert.False(t, DetectSQLInjection(n), "should not flag %q", n)
	}
}

func TestDetectXSS(t *testing.T) {
	positives := []string{
		"<script>alert(1)</script>",
		"<SCRIPT src=x>",
		"javascript:alert(document.cookie)",
		`<img src=x onerror=alert(1)>`,
		"<iframe src='http://evil'>",
		"width:expression(alert(1))",
		"data:text/html;base64,xxx",
	}
	for _, p := range positives {
		assert.True(t, DetectXSS(p), "should flag %q", p)
	}

	negatives := []string{
		"",
		"2 < 3 y 5 > 4",
		"el script de la obra", // "script" sin "<"
	}
	for _, n := range negatives {
		assert.False(t, DetectXSS(n), "should not flag %q", n)
	}
}

func TestDetectPathTraversal(t *testing.T) {
	assert.True(t, DetectPathTraversal("../../etc/passwd"))
	assert.True(t, DetectPathTraversal(`..\windows\win.ini`))
	assert.True(t, DetectPathTraversal("%2e%2e%2fsecret"))
	assert.False(t, DetectPathTraversal("catalogo/verano.jpg"))
}

func TestSanitizeHTML_Escapes(t *testing.T) {
	got := SanitizeHTML(`<b title="x">Tom & Jerry's</b>`)
	assert.Equal(t, "&lt;b title=&quot;x&quot;&gt;Tom &amp; Jerry&#x27;s&lt;&#x2F;b&gt;", got)
}

func TestSanitizeHTML_StripsDangerous(t *testing.T) {
	assert.NotContains(t, SanitizeHTML("javascript:alert(1)"), "javascript:")
	assert.NotContains(t, SanitizeHTML("JaVaScRiPt:x"), "JaVaScRiPt:")
	assert.NotContains(t, SanitizeHTML("<a onclick=evil()>"), "onclick=")
	assert.NotContains(t, SanitizeHTML("style=width:expression(1)"), "expression(")
	// strip anidado: eliminar una firma no puede dejar otra viva
	assert.NotContains(t, SanitizeHTML("jjavascript:avascript:alert(1)"), "javascript:")
}

func TestSanitizeHTML_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"texto normal",
		`<script>alert("xss & more")</script>`,
		"javascript:alert('1')/path/to",
		"Tom & Jerry < 3 > 2 \"quoted\" 'single'",
		"&amp; ya escapado &lt;div&gt;",
		"onload=hack() data:text/html",
	}
	for _, in := range inputs {
		once := SanitizeHTML(in)
		twice := SanitizeHTML(once)
		assert.Equal(t, once, twice, "no idempotente para %q", in)
	}
}

func TestValidateFile(t *testing.T) {
	rules := FileRules{
		MaxBytes:    1 << 20,
		AllowedMIME: []string{"image/jpeg", "image/png"},
		AllowedExts: []string{".jpg", ".jpeg", ".png"},
	}

	ok, errs := ValidateFile(FileInfo{Name: "foto.jpg", Size: 1000, MIME: "image/jpeg"}, rules)
	assert.True(t, ok)
	assert.Empty(t, errs)

	ok, errs = ValidateFile(FileInfo{Name: "shell.php.jpg", Size: 1000, MIME: "image/jpeg"}, rules)
	assert.False(t, ok)
	assert.Contains(t, errs, "multiple_extensions")

	ok, errs = ValidateFile(FileInfo{Name: "../../x.jpg", Size: 1000, MIME: "image/jpeg"}, rules)
	assert.False(t, ok)
	assert.Contains(t, errs, "path_traversal")

	ok, errs = ValidateFile(FileInfo{Name: "grande.png", Size: 2 << 20, MIME: "image/png"}, rules)
	assert.False(t, ok)
	assert.Contains(t, errs, "too_large")

	ok, errs = ValidateFile(FileInfo{Name: "doc.pdf", Size: 10, MIME: "application/pdf"}, rules)
	assert.False(t, ok)
	assert.Contains(t, errs, "mime_not_allowed")
	assert.Contains(t, errs, "ext_not_allowed")

	ok, errs = ValidateFile(FileInfo{Name: "", Size: 10, MIME: "image/png"}, rules)
	assert.False(t, ok)
	assert.Contains(t, errs, "missing_filename")
}
