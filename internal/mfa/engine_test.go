package mfa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcruzado/vitrina/internal/cache"
	"github.com/dcruzado/vitrina/internal/security/totp"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(Options{
		Store:  cache.NewMemory("test:", time.Minute),
		Policy: NewPolicy([]string{"admin", "owner"}, []string{"delete_store"}, true),
		OTPTTL: time.Minute,
	})
}

func TestPolicy_IsRequired(t *testing.T) {
	p := NewPolicy([]string{"owner"}, []string{"delete_store"}, true)

	assert.True(t, p.IsRequired("admin", ""), "mandato de admin")
	assert.True(t, p.IsRequired("owner", ""), "rol requerido")
	assert.True(t, p.IsRequired("customer", "delete_store"), "acción requerida")
	assert.False(t, p.IsRequired("customer", "view_cart"))
	assert.False(t, p.IsRequired("customer", ""))

	// sin mandato, admin solo cae por sets
	p2 := NewPolicy(nil, nil, false)
	assert.False(t, p2.IsRequired("admin", ""))
}

func TestPolicy_IsRequired_Normalizes(t *testing.T) {
	p := NewPolicy([]string{"Owner"}, []string{"Delete_Store"}, false)
	assert.True(t, p.IsRequired("  OWNER ", ""))
	assert.True(t, p.IsRequired("customer", "delete_store"))
}

func TestSetupTOTP_ProducesVerifiableMaterial(t *testing.T) {
	e := newTestEngine(t)

	enr, err := e.SetupTOTP("ana@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, enr.Secret)
	assert.Contains(t, enr.OTPAuthURL, "otpauth://totp/")
	assert.Len(t, enr.RecoveryCodes, 10)
	assert.Len(t, enr.RecoveryHashes, 10)

	code, err := totp.Code(enr.Secret)
	require.NoError(t, err)
	assert.True(t, e.VerifyTOTP(enr.Secret, code))
	assert.False(t, e.VerifyTOTP(enr.Secret, "000000"))
}

func TestOTP_IssueVerifyConsume(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	code, err := e.IssueOTP(ctx, "Ana@Example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)

	// identificador case-insensitive
	require.NoError(t, e.VerifyOTP(ctx, "ana@example.com", code))

	// un solo uso: el segundo intento no encuentra el código
	err = e.VerifyOTP(ctx, "ana@example.com", code)
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestOTP_Mismatch(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	code, err := e.IssueOTP(ctx, "ana@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	assert.ErrorIs(t, e.VerifyOTP(ctx, "ana@example.com", wrong), ErrOTPMismatch)

	// el código sigue vivo tras un intento fallido
	require.NoError(t, e.VerifyOTP(ctx, "ana@example.com", code))
}

func TestOTP_NeverIssued(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	assert.ErrorIs(t, e.VerifyOTP(ctx, "nadie@example.com", "123456"), ErrOTPNotFound)
}

func TestOTP_BadFormat(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	assert.ErrorIs(t, e.VerifyOTP(ctx, "ana@example.com", "abc123"), ErrOTPMismatch)
}

func TestOTP_ReissueReplaces(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	first, err := e.IssueOTP(ctx, "ana@example.com")
	require.NoError(t, err)
	second, err := e.IssueOTP(ctx, "ana@example.com")
	require.NoError(t, err)

	if first != second {
		assert.ErrorIs(t, e.VerifyOTP(ctx, "ana@example.com", first), ErrOTPMismatch)
	}
	require.NoError(t, e.VerifyOTP(ctx, "ana@example.com", second))
}

func TestVerifyRecovery_SingleUseContract(t *testing.T) {
	e := newTestEngine(t)

	enr, err := e.SetupTOTP("ana@example.com")
	require.NoError(t, err)
	hashes := enr.RecoveryHashes

	ok, idx := e.VerifyRecovery(enr.RecoveryCodes[3], hashes)
	require.True(t, ok)
	require.Equal(t, 3, idx)

	// el caller consume blanqueando el hash; el mismo código nunca
	// vuelve a verificar
	hashes[idx] = ""
	ok, _ = e.VerifyRecovery(enr.RecoveryCodes[3], hashes)
	assert.False(t, ok)

	// los demás siguen válidos
	ok, idx = e.VerifyRecovery(enr.RecoveryCodes[7], hashes)
	assert.True(t, ok)
	assert.Equal(t, 7, idx)
}
