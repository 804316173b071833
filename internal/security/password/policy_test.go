package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Validate_OK(t *testing.T) {
	ok, reasons := DefaultPolicy.Validate("Tr%fold-Zanja9!")
	assert.True(t, ok)
	assert.Empty(t, reasons)
}

func TestPolicy_Validate_ReportsAllViolations(t *testing.T) {
	// corta, sin mayúscula, sin símbolo, patrón común
	ok, reasons := DefaultPolicy.Validate("abc4")
	assert.False(t, ok)
	assert.Contains(t, reasons, "too_short")
	assert.Contains(t, reasons, "missing_upper")
	assert.Contains(t, reasons, "missing_symbol")
	assert.Contains(t, reasons, "common_pattern")
}

func TestPolicy_Validate_RepeatedRun(t *testing.T) {
	ok, reasons := DefaultPolicy.Validate("Zttt%9-Kortelan")
	assert.False(t, ok)
	assert.Contains(t, reasons, "repeated_chars")
}

func TestPolicy_Validate_CommonPatternCaseInsensitive(t *testing.T) {
	ok, reasons := DefaultPolicy.Validate("X%PaSsWoRd-9557q")
	assert.False(t, ok)
	assert.Contains(t, reasons, "common_pattern")
}

func TestPolicy_Validate_EmptyInput(t *testing.T) {
	ok, reasons := DefaultPolicy.Validate("")
	assert.False(t, ok)
	assert.Empty(t, reasons)
}

func TestHashVerify_RoundTrip(t *testing.T) {
	h, err := Hash("Tr%fold-Zanja9!")
	require.NoError(t, err)
	assert.True(t, Verify("Tr%fold-Zanja9!", h))
	assert.False(t, Verify("otra-cosa", h))
}

func TestHash_EmptyFails(t *testing.T) {
	_, err := Hash("")
	require.Error(t, err)
}

func TestNeedsRehash(t *testing.T) {
	h, err := Hash("Tr%fold-Zanja9!")
	require.NoError(t, err)
	assert.False(t, NeedsRehash(h))

	// hash con costo 10 (por debajo de la política) generado offline
	low := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	assert.True(t, NeedsRehash(low))
	assert.True(t, NeedsRehash("no-es-bcrypt"))
}

func TestBlacklist_Contains(t *testing.T) {
	bl, err := LoadBlacklist("")
	require.NoError(t, err)
	assert.False(t, bl.Contains("cualquiera"))

	var nilBL *Blacklist
	assert.False(t, nilBL.Contains("x"))
}
