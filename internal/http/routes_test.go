package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcruzado/vitrina/internal/audit"
	"github.com/dcruzado/vitrina/internal/cache"
	"github.com/dcruzado/vitrina/internal/email"
	vhttp "github.com/dcruzado/vitrina/internal/http"
	"github.com/dcruzado/vitrina/internal/http/handlers"
	"github.com/dcruzado/vitrina/internal/jwt"
	"github.com/dcruzado/vitrina/internal/mfa"
	"github.com/dcruzado/vitrina/internal/rate"
	"github.com/dcruzado/vitrina/internal/security/csrf"
	"github.com/dcruzado/vitrina/internal/security/password"
	"github.com/dcruzado/vitrina/internal/security/threat"
	"github.com/dcruzado/vitrina/internal/security/totp"
	"github.com/dcruzado/vitrina/internal/store"
)

// password que pasa la política por defecto
const goodPassword = "Str0ng&Secure#Pw"

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message    string `json:"message"`
		Code       string `json:"code"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

type app struct {
	router http.Handler
	store  store.Repository
	cache  cache.Client
	issuer *jwt.Issuer
}

type appOptions struct {
	rateMax    int
	authLimit  int
	blockedIPs []string
}

func newApp(t *testing.T, opts appOptions) *app {
	t.Helper()
	t.Setenv("JWT_ACCESS_SECRET", "test-access-secret-0123456789")
	t.Setenv("JWT_REFRESH_SECRET", "test-refresh-secret-0123456789")

	if opts.rateMax == 0 {
		opts.rateMax = 100
	}
	if opts.authLimit == 0 {
		opts.authLimit = 5
	}

	st := store.NewMemory()
	ch := cache.NewMemory("t:", time.Minute)
	issuer := jwt.NewIssuer("vitrina", "vitrina-storefront", 15*time.Minute, 7*24*time.Hour)
	guard := csrf.NewGuard(ch, time.Hour)
	auditLog := audit.New()
	engine := mfa.NewEngine(mfa.Options{
		Store:  ch,
		Policy: mfa.NewPolicy(nil, nil, false),
	})
	blacklist, err := password.LoadBlacklist("")
	require.NoError(t, err)

	limiter := rate.NewMemoryLimiter(opts.rateMax, time.Minute)

	h := handlers.New(handlers.Deps{
		Store:        st,
		Cache:        ch,
		Issuer:       issuer,
		MFA:          engine,
		CSRF:         guard,
		Policy:       password.DefaultPolicy,
		Blacklist:    blacklist,
		AuthFailures: rate.NewAuthFailures(opts.authLimit, time.Minute),
		Limiter:      limiter,
		Upload: threat.FileRules{
			MaxBytes:    1 << 20,
			AllowedMIME: []string{"image/jpeg", "image/png"},
			AllowedExts: []string{".jpg", ".png"},
		},
		Audit: auditLog,
		Email: email.LogSender{},
	})

	router := vhttp.NewRouter(vhttp.RouterConfig{
		Handlers:   h,
		Issuer:     issuer,
		Guard:      guard,
		Audit:      auditLog,
		Limiter:    limiter,
		RateMax:    int64(opts.rateMax),
		BlockedIPs: opts.blockedIPs,
		Dev:        true,
	})

	return &app{router: router, store: st, cache: ch, issuer: issuer}
}

func jsonReq(method, path string, body any) *http.Request {
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "routes-test")
	return req
}

func (a *app) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if len(rec.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	}
	return rec, env
}

func (a *app) register(t *testing.T, emailAddr string) (token, refresh string) {
	t.Helper()
	rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Tester",
		"email":    emailAddr,
		"password": goodPassword,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, env.OK)

	var data struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	require.NotEmpty(t, data.RefreshToken)
	return data.Token, data.RefreshToken
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	a := newApp(t, appOptions{})
	a.register(t, "ana@example.com")

	rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": goodPassword,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.OK)

	var data struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.Token)
	assert.Equal(t, "ana@example.com", data.User.Email)
	assert.Equal(t, "customer", data.User.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	a := newApp(t, appOptions{})
	a.register(t, "dup@example.com")

	// mismo email: 200 con ok=false, no 409
	rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "Dup@Example.com",
		"password": goodPassword,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, env.OK)
	require.NotNil(t, env.Error)
	assert.Equal(t, "USER_EXISTS", env.Error.Code)
	assert.Equal(t, "User already exists", env.Error.Message)
}

func TestRegisterWeakPassword(t *testing.T) {
	a := newApp(t, appOptions{})
	rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "weak@example.com",
		"password": "short",
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "WEAK_PASSWORD", env.Error.Code)
}

func TestLoginInvalidCredentialsIsGeneric(t *testing.T) {
	a := newApp(t, appOptions{})
	a.register(t, "bob@example.com")

	cases := []map[string]string{
		{"email": "bob@example.com", "password": "Wrong#Password1"}, // password mal
		{"email": "ghost@example.com", "password": goodPassword},    // cuenta inexistente
	}
	for _, body := range cases {
		rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/login", body))
		require.Equal(t, http.StatusOK, rec.Code)
		require.False(t, env.OK)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
		assert.Equal(t, "Invalid credentials", env.Error.Message)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	a := newApp(t, appOptions{authLimit: 3})
	a.register(t, "lock@example.com")

	bad := map[string]string{"email": "lock@example.com", "password": "Wrong#Password1"}
	for i := 0; i < 3; i++ {
		rec, _ := a.do(t, jsonReq(http.MethodPost, "/api/auth/login", bad))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/login", bad))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	a := newApp(t, appOptions{})
	_, refresh := a.register(t, "ref@example.com")

	rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": refresh,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.OK)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.Token)

	// logout revoca el refresh
	rec, env = a.do(t, jsonReq(http.MethodPost, "/api/auth/logout", map[string]string{
		"refreshToken": refresh,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.OK)

	// logout repetido es idempotente
	rec, _ = a.do(t, jsonReq(http.MethodPost, "/api/auth/logout", map[string]string{
		"refreshToken": refresh,
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	// el refresh revocado ya no sirve
	rec, env = a.do(t, jsonReq(http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": refresh,
	}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", env.Error.Code)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	a := newApp(t, appOptions{})
	access, _ := a.register(t, "kind@example.com")

	rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": access,
	}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", env.Error.Code)
}

func TestCSRFRejectAndRetry(t *testing.T) {
	a := newApp(t, appOptions{})

	// con cookie de sesión y sin token: 403 + señal de reintento
	req := jsonReq(http.MethodPost, "/api/auth/logout", map[string]string{"refreshToken": "x"})
	req.AddCookie(&http.Cookie{Name: "sid", Value: "sess-1"})
	rec, env := a.do(t, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "CSRF_TOKEN_INVALID", env.Error.Code)
	assert.Equal(t, "true", rec.Header().Get("X-CSRF-Required"))

	// pedir token fresco para esa sesión
	req = jsonReq(http.MethodGet, "/api/auth/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "sess-1"})
	rec, env = a.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.CSRFToken)

	// reintento con el token: el check CSRF pasa (el handler falla por
	// el refresh inválido, pero con logout idempotente eso es 200)
	req = jsonReq(http.MethodPost, "/api/auth/logout", map[string]string{"refreshToken": "x"})
	req.AddCookie(&http.Cookie{Name: "sid", Value: "sess-1"})
	req.Header.Set("X-CSRF-Token", data.CSRFToken)
	rec, _ = a.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFTokenEndpointSetsSessionCookie(t *testing.T) {
	a := newApp(t, appOptions{})
	rec, env := a.do(t, jsonReq(http.MethodGet, "/api/auth/csrf-token", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.OK)

	var sid string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "sid" {
			sid = ck.Value
			require.True(t, ck.HttpOnly)
		}
	}
	assert.NotEmpty(t, sid)
}

func TestRateLimitExceeded(t *testing.T) {
	a := newApp(t, appOptions{rateMax: 3})

	for i := 0; i < 3; i++ {
		rec, _ := a.do(t, jsonReq(http.MethodGet, "/api/auth/csrf-token", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec, env := a.do(t, jsonReq(http.MethodGet, "/api/auth/csrf-token", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitSkipsHealthz(t *testing.T) {
	a := newApp(t, appOptions{rateMax: 2})
	for i := 0; i < 10; i++ {
		rec, _ := a.do(t, jsonReq(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestThreatDetectionRejectsInjection(t *testing.T) {
	a := newApp(t, appOptions{})

	rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "x@example.com",
		"password": "' OR 1=1 --",
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MALICIOUS_INPUT", env.Error.Code)

	// también en query string
	rec, env = a.do(t, jsonReq(http.MethodGet, "/healthz?q=<script>alert(1)</script>", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MALICIOUS_INPUT", env.Error.Code)
}

func TestUploadPreflightValidation(t *testing.T) {
	a := newApp(t, appOptions{})
	token, _ := a.register(t, "files@example.com")

	body := map[string]any{"name": "foto.jpg", "size": 1000, "mime": "image/jpeg"}

	// requiere sesión
	rec, _ := a.do(t, jsonReq(http.MethodPost, "/api/uploads/validate", body))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := jsonReq(http.MethodPost, "/api/uploads/validate", body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, env := a.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.OK)

	var verdict struct {
		Allowed    bool     `json:"allowed"`
		Violations []string `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &verdict))
	assert.True(t, verdict.Allowed)
	assert.Empty(t, verdict.Violations)

	req = jsonReq(http.MethodPost, "/api/uploads/validate", map[string]any{
		"name": "shell.php.jpg",
		"size": int64(2 << 20),
		"mime": "application/x-httpd-php",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	rec, env = a.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.OK)
	require.NoError(t, json.Unmarshal(env.Data, &verdict))
	assert.False(t, verdict.Allowed)
	assert.Contains(t, verdict.Violations, "too_large")
	assert.Contains(t, verdict.Violations, "mime_not_allowed")
	assert.Contains(t, verdict.Violations, "multiple_extensions")
}

func TestBlockedIPRejected(t *testing.T) {
	a := newApp(t, appOptions{blockedIPs: []string{"192.0.2.1"}})

	// httptest usa RemoteAddr 192.0.2.1:1234
	rec, env := a.do(t, jsonReq(http.MethodGet, "/api/auth/csrf-token", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "IP_BLOCKED", env.Error.Code)
}

func TestSecurityHeadersPresent(t *testing.T) {
	a := newApp(t, appOptions{})
	rec, _ := a.do(t, jsonReq(http.MethodGet, "/healthz", nil))

	h := rec.Header()
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.NotEmpty(t, h.Get("Content-Security-Policy"))
	assert.NotEmpty(t, h.Get("Strict-Transport-Security"))
	assert.NotEmpty(t, h.Get("X-Request-Id"))
}

func TestMFALoginFlow(t *testing.T) {
	a := newApp(t, appOptions{})

	secret, err := totp.GenerateSecret()
	require.NoError(t, err)
	hash, err := password.Hash(goodPassword)
	require.NoError(t, err)
	u := &store.User{
		Email:        "mfa@example.com",
		PasswordHash: hash,
		Role:         "customer",
		TOTPSecret:   secret,
		MFAEnabled:   true,
	}
	require.NoError(t, a.store.Create(context.Background(), u))

	// primer factor: no entrega tokens, entrega challenge
	rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "mfa@example.com",
		"password": goodPassword,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.OK)
	var loginData struct {
		MFARequired    bool   `json:"mfaRequired"`
		ChallengeToken string `json:"challengeToken"`
		Token          string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &loginData))
	require.True(t, loginData.MFARequired)
	require.NotEmpty(t, loginData.ChallengeToken)
	require.Empty(t, loginData.Token)

	// código equivocado: falla pero el challenge sobrevive
	rec, env = a.do(t, jsonReq(http.MethodPost, "/api/auth/mfa/verify", map[string]string{
		"challengeToken": loginData.ChallengeToken,
		"code":           "000000",
	}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MFA_INVALID_CODE", env.Error.Code)

	// código correcto: tokens
	code, err := totp.Code(secret)
	require.NoError(t, err)
	rec, env = a.do(t, jsonReq(http.MethodPost, "/api/auth/mfa/verify", map[string]string{
		"challengeToken": loginData.ChallengeToken,
		"code":           code,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, env.OK)
	var pair struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.NotEmpty(t, pair.Token)
	assert.NotEmpty(t, pair.RefreshToken)

	// el challenge se consumió con el éxito
	rec, env = a.do(t, jsonReq(http.MethodPost, "/api/auth/mfa/verify", map[string]string{
		"challengeToken": loginData.ChallengeToken,
		"code":           code,
	}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MFA_REQUIRED", env.Error.Code)
}

func TestMFASetupEnableAndRecovery(t *testing.T) {
	a := newApp(t, appOptions{})
	access, _ := a.register(t, "enroll@example.com")

	// setup con bearer
	req := jsonReq(http.MethodPost, "/api/auth/mfa/setup", map[string]string{})
	req.Header.Set("Authorization", "Bearer "+access)
	rec, env := a.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var setup struct {
		Secret        string   `json:"secret"`
		OTPAuthURL    string   `json:"otpauthUrl"`
		RecoveryCodes []string `json:"recoveryCodes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &setup))
	require.NotEmpty(t, setup.Secret)
	require.NotEmpty(t, setup.OTPAuthURL)
	require.Len(t, setup.RecoveryCodes, 10)

	// enable probando posesión del secreto
	code, err := totp.Code(setup.Secret)
	require.NoError(t, err)
	req = jsonReq(http.MethodPost, "/api/auth/mfa/enable", map[string]string{"code": code})
	req.Header.Set("Authorization", "Bearer "+access)
	rec, _ = a.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// login ahora exige segundo factor
	rec, env = a.do(t, jsonReq(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "enroll@example.com",
		"password": goodPassword,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	var loginData struct {
		ChallengeToken string `json:"challengeToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &loginData))
	require.NotEmpty(t, loginData.ChallengeToken)

	// recovery code completa el login
	rc := setup.RecoveryCodes[0]
	rec, env = a.do(t, jsonReq(http.MethodPost, "/api/auth/mfa/recovery", map[string]string{
		"challengeToken": loginData.ChallengeToken,
		"code":           rc,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, env.OK)

	// el mismo código no vale dos veces
	rec, env = a.do(t, jsonReq(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "enroll@example.com",
		"password": goodPassword,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &loginData))
	rec, env = a.do(t, jsonReq(http.MethodPost, "/api/auth/mfa/recovery", map[string]string{
		"challengeToken": loginData.ChallengeToken,
		"code":           rc,
	}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MFA_INVALID_CODE", env.Error.Code)
}

func TestForgotPasswordFlow(t *testing.T) {
	a := newApp(t, appOptions{})
	a.register(t, "reset@example.com")

	// respuesta idéntica exista o no la cuenta
	for _, addr := range []string{"reset@example.com", "nobody@example.com"} {
		rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/forgot-password", map[string]string{
			"email": addr,
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.True(t, env.OK)
	}

	// el OTP quedó en cache para la cuenta real; lo leemos directo
	otpCode, err := a.cache.Get(context.Background(), "otp:reset@example.com")
	require.NoError(t, err)

	rec, env := a.do(t, jsonReq(http.MethodPost, "/api/auth/verify-otp", map[string]string{
		"email":       "reset@example.com",
		"otp":         otpCode,
		"newPassword": "An0ther&Secure#Pw",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, env.OK)

	// el password viejo ya no sirve, el nuevo sí
	rec, env = a.do(t, jsonReq(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "reset@example.com",
		"password": goodPassword,
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, env.OK)

	rec, env = a.do(t, jsonReq(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "reset@example.com",
		"password": "An0ther&Secure#Pw",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.OK)
}

func TestAdminClearRateLimitRequiresRole(t *testing.T) {
	a := newApp(t, appOptions{})
	access, _ := a.register(t, "cust@example.com")

	req := jsonReq(http.MethodPost, "/api/admin/rate-limit/clear", map[string]string{"identifier": "x"})
	req.Header.Set("Authorization", "Bearer "+access)
	rec, env := a.do(t, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	// admin sí puede
	hash, err := password.Hash(goodPassword)
	require.NoError(t, err)
	adm := &store.User{Email: "root@example.com", PasswordHash: hash, Role: "admin"}
	require.NoError(t, a.store.Create(context.Background(), adm))
	adminToken, err := a.issuer.GenerateAccessToken(jwt.Payload{
		UserID: adm.ID.String(), Email: adm.Email, Role: adm.Role,
	})
	require.NoError(t, err)

	req = jsonReq(http.MethodPost, "/api/admin/rate-limit/clear", map[string]string{"identifier": "x"})
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec, env = a.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, env.OK)
}

func TestAuthMiddlewareRejectsGarbageToken(t *testing.T) {
	a := newApp(t, appOptions{})

	req := jsonReq(http.MethodPost, "/api/auth/mfa/setup", map[string]string{})
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec, env := a.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", env.Error.Code)

	req = jsonReq(http.MethodPost, "/api/auth/mfa/setup", map[string]string{})
	rec, env = a.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_MISSING", env.Error.Code)
}
