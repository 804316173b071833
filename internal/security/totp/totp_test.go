package totp

import (
	"encoding/base32"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Vectores del apéndice B de RFC 6238 (SHA1). Los códigos publicados son
// de 8 dígitos; los últimos 6 coinciden con el código de 6 dígitos.
func TestCodeAt_RFC6238Vectors(t *testing.T) {
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).
		EncodeToString([]byte("12345678901234567890"))

	cases := []struct {
		unix int64
		want string // últimos 6 de los vectores de 8 dígitos
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}
	for _, c := range cases {
		got, err := CodeAt(secret, time.Unix(c.unix, 0).UTC())
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "t=%d", c.unix)
	}
}

func TestVerifyAt_Window(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)

	now := time.Unix(1700000015, 0)
	code, err := CodeAt(secret, now)
	require.NoError(t, err)

	// mismo step
	assert.True(t, VerifyAt(secret, code, now, 1))
	// step adyacente, dentro de la ventana
	assert.True(t, VerifyAt(secret, code, now.Add(Period*time.Second), 1))
	// dos steps: fuera de la ventana
	assert.False(t, VerifyAt(secret, code, now.Add(3*Period*time.Second), 1))
}

func TestVerifyAt_RejectsBadInput(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	now := time.Now()

	assert.False(t, VerifyAt(secret, "12345", now, 1))    // largo incorrecto
	assert.False(t, VerifyAt(secret, "", now, 1))         // vacío
	assert.False(t, VerifyAt("%%%", "123456", now, 1))    // secreto inválido
	assert.False(t, VerifyAt(secret, "000000\n", now, 1)) // basura con whitespace de 6
}

func TestGenerateSecret_Format(t *testing.T) {
	s, err := GenerateSecret()
	require.NoError(t, err)
	assert.NotContains(t, s, "=")
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestOTPAuthURL(t *testing.T) {
	u := OTPAuthURL("Vitrina", "ana@example.com", "JBSWY3DPEHPK3PXP")
	assert.True(t, strings.HasPrefix(u, "otpauth://totp/Vitrina:ana%40example.com?"))
	assert.Contains(t, u, "secret=JBSWY3DPEHPK3PXP")
	assert.Contains(t, u, "period=30")
}
