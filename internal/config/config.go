package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// driver: postgres | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		Issuer   string `yaml:"issuer"`
		Audience string `yaml:"audience"`
		// TTLs como strings de duración ("15m", "168h")
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
		// Fracción de vida consumida a partir de la cual el access token
		// es elegible para reemisión silenciosa (0 deshabilita rotación).
		RotationThreshold float64 `yaml:"rotation_threshold"`
	} `yaml:"jwt"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`

		// Límite más estricto dedicado a fallos de autenticación.
		Auth struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"auth"`
	} `yaml:"rate"`

	CSRF struct {
		TTL string `yaml:"ttl"`
	} `yaml:"csrf"`

	Security struct {
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length"`
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
		PasswordBlacklistPath string `yaml:"password_blacklist_path"`

		Upload struct {
			MaxBytes    int64    `yaml:"max_bytes"`
			AllowedMIME []string `yaml:"allowed_mime"`
			AllowedExts []string `yaml:"allowed_exts"`
		} `yaml:"upload"`

		BlockedIPs []string `yaml:"blocked_ips"`
	} `yaml:"security"`

	MFA struct {
		TOTPIssuer    string   `yaml:"totp_issuer"`
		TOTPWindow    int      `yaml:"totp_window"`
		OTPTTL        string   `yaml:"otp_ttl"`
		RecoveryCodes int      `yaml:"recovery_codes"`
		RequiredRoles []string `yaml:"required_roles"`
		RequiredActs  []string `yaml:"required_actions"`
		AdminMandate  bool     `yaml:"admin_mandate"`
	} `yaml:"mfa"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		TLS      string `yaml:"tls"` // auto | starttls | ssl | none
	} `yaml:"smtp"`

	Providers struct {
		Google struct {
			Enabled      bool   `yaml:"enabled"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			RedirectURL  string `yaml:"redirect_url"`
		} `yaml:"google"`
		Facebook struct {
			Enabled      bool   `yaml:"enabled"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			RedirectURL  string `yaml:"redirect_url"`
		} `yaml:"facebook"`
	} `yaml:"providers"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

// applyEnv pisa valores del YAML con variables de entorno (deploy-friendly).
// Los secretos JWT NO viven acá: se leen de env en el punto de uso.
func (c *Config) applyEnv() {
	if v := getenv("VITRINA_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.CORSAllowedOrigins = splitCSV(v)
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Storage.Driver = "postgres"
		c.Storage.DSN = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Kind = "redis"
		c.Cache.Redis.Addr = v
	}
	if v := getenv("APP_ENV"); v != "" {
		c.App.Env = v
	}
	if v := getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = n
		}
	}
	if v := getenv("SMTP_USER"); v != "" {
		c.SMTP.Username = v
	}
	if v := getenv("SMTP_PASS"); v != "" {
		c.SMTP.Password = v
	}
	if v := getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.Providers.Google.ClientID = v
		c.Providers.Google.Enabled = true
	}
	if v := getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		c.Providers.Google.ClientSecret = v
	}
	if v := getenv("FACEBOOK_CLIENT_ID"); v != "" {
		c.Providers.Facebook.ClientID = v
		c.Providers.Facebook.Enabled = true
	}
	if v := getenv("FACEBOOK_CLIENT_SECRET"); v != "" {
		c.Providers.Facebook.ClientSecret = v
	}
}

func (c *Config) applyDefaults() {
	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "vitrina"
	}
	if c.JWT.Audience == "" {
		c.JWT.Audience = "vitrina-storefront"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "15m"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "168h" // 7d
	}
	if c.JWT.RotationThreshold == 0 {
		c.JWT.RotationThreshold = 0.8
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "15m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 100
	}
	if c.Rate.Auth.Limit == 0 {
		c.Rate.Auth.Limit = 5
	}
	if c.Rate.Auth.Window == "" {
		c.Rate.Auth.Window = "15m"
	}
	if c.CSRF.TTL == "" {
		c.CSRF.TTL = "1h"
	}
	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 12
		c.Security.PasswordPolicy.RequireUpper = true
		c.Security.PasswordPolicy.RequireLower = true
		c.Security.PasswordPolicy.RequireDigit = true
		c.Security.PasswordPolicy.RequireSymbol = true
	}
	if c.Security.Upload.MaxBytes == 0 {
		c.Security.Upload.MaxBytes = 5 << 20 // 5MB
	}
	if len(c.Security.Upload.AllowedMIME) == 0 {
		c.Security.Upload.AllowedMIME = []string{"image/jpeg", "image/png", "image/webp"}
	}
	if len(c.Security.Upload.AllowedExts) == 0 {
		c.Security.Upload.AllowedExts = []string{".jpg", ".jpeg", ".png", ".webp"}
	}
	if c.MFA.TOTPIssuer == "" {
		c.MFA.TOTPIssuer = "Vitrina"
	}
	if c.MFA.TOTPWindow == 0 {
		c.MFA.TOTPWindow = 1
	}
	if c.MFA.OTPTTL == "" {
		c.MFA.OTPTTL = "10m"
	}
	if c.MFA.RecoveryCodes == 0 {
		c.MFA.RecoveryCodes = 10
	}
	if len(c.MFA.RequiredRoles) == 0 {
		c.MFA.RequiredRoles = []string{"admin", "owner"}
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
}

// Dur parsea una duración de config; fallback si está vacía o inválida.
func Dur(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
