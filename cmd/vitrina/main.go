package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dcruzado/vitrina/internal/audit"
	"github.com/dcruzado/vitrina/internal/cache"
	"github.com/dcruzado/vitrina/internal/config"
	"github.com/dcruzado/vitrina/internal/email"
	vhttp "github.com/dcruzado/vitrina/internal/http"
	"github.com/dcruzado/vitrina/internal/http/handlers"
	"github.com/dcruzado/vitrina/internal/jwt"
	"github.com/dcruzado/vitrina/internal/mfa"
	"github.com/dcruzado/vitrina/internal/oauth"
	"github.com/dcruzado/vitrina/internal/oauth/facebook"
	"github.com/dcruzado/vitrina/internal/oauth/google"
	"github.com/dcruzado/vitrina/internal/observability/logger"
	"github.com/dcruzado/vitrina/internal/observability/metrics"
	"github.com/dcruzado/vitrina/internal/rate"
	"github.com/dcruzado/vitrina/internal/security/csrf"
	"github.com/dcruzado/vitrina/internal/security/password"
	"github.com/dcruzado/vitrina/internal/security/threat"
	"github.com/dcruzado/vitrina/internal/store"
	migrations "github.com/dcruzado/vitrina/migrations/postgres"

	// driver database/sql para goose
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// .env es opcional; en deploy las vars vienen del entorno
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:   "vitrina",
		Short: "API de auth y seguridad del storefront",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.example.yaml", "Path al config YAML")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Aplica migraciones de Postgres (embebidas)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			return runMigrate(configPath, action)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// requireSecrets corta temprano si faltan los secretos de firma; los
// paquetes los releen de env en cada uso.
func requireSecrets() error {
	for _, k := range []string{"JWT_ACCESS_SECRET", "JWT_REFRESH_SECRET"} {
		if os.Getenv(k) == "" {
			return fmt.Errorf("missing required env var %s", k)
		}
	}
	return nil
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	if err := requireSecrets(); err != nil {
		return err
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: "info"})
	defer logger.Sync()
	log := logger.Named("serve")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// storage
	st, err := store.New(ctx, store.Config{Kind: cfg.Storage.Driver, DSN: cfg.Storage.DSN})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	// cache (CSRF, OTP, revocación de refresh, oauth state)
	ch, err := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: config.Dur(cfg.Cache.Memory.DefaultTTL, 2*time.Minute),
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer ch.Close()

	issuer := jwt.NewIssuer(
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		config.Dur(cfg.JWT.AccessTTL, 15*time.Minute),
		config.Dur(cfg.JWT.RefreshTTL, 7*24*time.Hour),
	)
	issuer.RotationThreshold = cfg.JWT.RotationThreshold

	engine := mfa.NewEngine(mfa.Options{
		Store:         ch,
		Policy:        mfa.NewPolicy(cfg.MFA.RequiredRoles, cfg.MFA.RequiredActs, cfg.MFA.AdminMandate),
		TOTPIssuer:    cfg.MFA.TOTPIssuer,
		TOTPWindow:    cfg.MFA.TOTPWindow,
		OTPTTL:        config.Dur(cfg.MFA.OTPTTL, 10*time.Minute),
		RecoveryCount: cfg.MFA.RecoveryCodes,
	})

	guard := csrf.NewGuard(ch, config.Dur(cfg.CSRF.TTL, time.Hour))

	blacklist, err := password.LoadBlacklist(cfg.Security.PasswordBlacklistPath)
	if err != nil {
		return fmt.Errorf("password blacklist: %w", err)
	}
	policy := password.Policy{
		MinLength:      cfg.Security.PasswordPolicy.MinLength,
		RequireUpper:   cfg.Security.PasswordPolicy.RequireUpper,
		RequireLower:   cfg.Security.PasswordPolicy.RequireLower,
		RequireDigit:   cfg.Security.PasswordPolicy.RequireDigit,
		RequireSymbol:  cfg.Security.PasswordPolicy.RequireSymbol,
		MaxRepeat:      password.DefaultPolicy.MaxRepeat,
		CommonPatterns: password.DefaultPolicy.CommonPatterns,
	}

	rateWindow := config.Dur(cfg.Rate.Window, 15*time.Minute)
	limiter := rate.NewMemoryLimiter(cfg.Rate.MaxRequests, rateWindow)
	go func() {
		t := time.NewTicker(rateWindow)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				limiter.Cleanup()
			}
		}
	}()
	authFailures := rate.NewAuthFailures(cfg.Rate.Auth.Limit, config.Dur(cfg.Rate.Auth.Window, 15*time.Minute))

	auditLog := audit.New()

	var sender email.Sender
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.TLS)
	} else {
		sender = email.LogSender{}
	}

	providers := map[string]oauth.Provider{}
	if g := cfg.Providers.Google; g.Enabled {
		providers["google"] = google.New(g.ClientID, g.ClientSecret, g.RedirectURL)
	}
	if f := cfg.Providers.Facebook; f.Enabled {
		providers["facebook"] = facebook.New(f.ClientID, f.ClientSecret, f.RedirectURL)
	}

	metricsHandler, err := metrics.Register(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	h := handlers.New(handlers.Deps{
		Store:        st,
		Cache:        ch,
		Issuer:       issuer,
		MFA:          engine,
		CSRF:         guard,
		Policy:       policy,
		Blacklist:    blacklist,
		AuthFailures: authFailures,
		Limiter:      limiter,
		Upload: threat.FileRules{
			MaxBytes:    cfg.Security.Upload.MaxBytes,
			AllowedMIME: cfg.Security.Upload.AllowedMIME,
			AllowedExts: cfg.Security.Upload.AllowedExts,
		},
		Audit:     auditLog,
		Email:     sender,
		Providers: providers,
	})

	var globalLimiter rate.Limiter = limiter
	if !cfg.Rate.Enabled {
		globalLimiter = nil
	}

	router := vhttp.NewRouter(vhttp.RouterConfig{
		Handlers:       h,
		Issuer:         issuer,
		Guard:          guard,
		Audit:          auditLog,
		Limiter:        globalLimiter,
		RateMax:        int64(cfg.Rate.MaxRequests),
		BlockedIPs:     cfg.Security.BlockedIPs,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		MetricsHandler: metricsHandler,
		Dev:            cfg.App.Env == "dev",
	})

	srv := vhttp.NewServer(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("bye")
	return nil
}

func runMigrate(configPath, action string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	if cfg.Storage.DSN == "" {
		return fmt.Errorf("migrate requiere storage.dsn o DATABASE_URL")
	}

	db, err := sql.Open("pgx", cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch action {
	case "up":
		return migrations.Up(ctx, db)
	case "down":
		return migrations.Down(ctx, db)
	case "status":
		return migrations.Status(ctx, db)
	default:
		return fmt.Errorf("unknown action %q. Use: up | down | status", action)
	}
}
