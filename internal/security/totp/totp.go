// Package totp implementa TOTP (RFC 6238) sobre HOTP (RFC 4226) con
// HMAC-SHA1, códigos de 6 dígitos y período de 30s.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Period es el time-step en segundos.
const Period = 30

// Digits del código generado.
const Digits = 6

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret retorna 32 bytes aleatorios en base32 sin padding.
func GenerateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return b32.EncodeToString(raw), nil
}

// OTPAuthURL construye otpauth:// para QR de enrolamiento.
func OTPAuthURL(issuer, accountName, secretB32 string) string {
	// url.QueryEscape por componente: PathEscape deja '@' sin escapar y
	// varias apps de autenticación esperan %40 en el label.
	label := url.QueryEscape(issuer) + ":" + url.QueryEscape(accountName)
	q := url.Values{}
	q.Set("secret", secretB32)
	q.Set("issuer", issuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", fmt.Sprintf("%d", Digits))
	q.Set("period", fmt.Sprintf("%d", Period))
	return fmt.Sprintf("otpauth://totp/%s?%s", label, q.Encode())
}

// CodeAt genera el código para el instante t.
func CodeAt(secretB32 string, t time.Time) (string, error) {
	raw, err := decodeSecret(secretB32)
	if err != nil {
		return "", err
	}
	return hotp(raw, t.Unix()/Period), nil
}

// Code genera el código para ahora.
func Code(secretB32 string) (string, error) {
	return CodeAt(secretB32, time.Now())
}

// VerifyAt chequea code contra el contador de t y ±windowSteps pasos
// adyacentes para tolerar drift de reloj.
func VerifyAt(secretB32, code string, t time.Time, windowSteps int) bool {
	code = strings.TrimSpace(code)
	if len(code) != Digits {
		return false
	}
	raw, err := decodeSecret(secretB32)
	if err != nil {
		return false
	}
	counter := t.Unix() / Period
	for c := counter - int64(windowSteps); c <= counter+int64(windowSteps); c++ {
		if subtle.ConstantTimeCompare([]byte(hotp(raw, c)), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

// Verify chequea code contra ahora con la ventana dada.
func Verify(secretB32, code string, windowSteps int) bool {
	return VerifyAt(secretB32, code, time.Now(), windowSteps)
}

func decodeSecret(secretB32 string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimSpace(secretB32))
	s = strings.TrimRight(s, "=")
	raw, err := b32.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("totp: invalid base32 secret: %w", err)
	}
	return raw, nil
}

// hotp calcula HOTP(K, C) truncado a 6 dígitos con zero-padding.
func hotp(secret []byte, counter int64) string {
	var msg [8]byte
	for i := 7; i >= 0; i-- {
		msg[i] = byte(counter & 0xff)
		counter >>= 8
	}
	m := hmac.New(sha1.New, secret)
	_, _ = m.Write(msg[:])
	sum := m.Sum(nil)
	offset := int(sum[len(sum)-1] & 0x0f)
	bin := (int(sum[offset])&0x7f)<<24 | int(sum[offset+1])<<16 | int(sum[offset+2])<<8 | int(sum[offset+3])
	return fmt.Sprintf("%06d", bin%1000000)
}
