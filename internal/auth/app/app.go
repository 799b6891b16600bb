package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariaauth/aria/internal/auth/ceremony"
	httpapi "github.com/ariaauth/aria/internal/auth/http"
	"github.com/ariaauth/aria/internal/auth/notify"
	"github.com/ariaauth/aria/internal/auth/service"
	"github.com/ariaauth/aria/internal/auth/store"
	"github.com/ariaauth/aria/internal/auth/store/drivers/memory"
	"github.com/ariaauth/aria/internal/auth/store/drivers/redis"
	"github.com/ariaauth/aria/internal/auth/store/drivers/sqlite"
	"github.com/ariaauth/aria/pkg/jwtx"
	"github.com/ariaauth/aria/pkg/slogx"
)

// BuildVersion is set at build time via ldflags.
var BuildVersion = "dev"

// Application owns every long-lived dependency of the auth server and wires
// the service graph together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        *sqlite.Store
	ephemeral store.EphemeralStore
	keys      *jwtx.KeySource

	auth         *service.AuthorizeService
	embedded     *service.EmbeddedService
	users        *service.UserService
	tokens       *service.TokenService
	passkeys     *service.PasskeyService
	bootstrap    *service.BootstrapService
	housekeeping *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New initializes the application: storage, signing keys, the service graph,
// and the HTTP surface. Nothing starts serving until Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "aria-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	db, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	app.db = db

	if cfg.RedisAddr != "" {
		app.ephemeral = redis.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	} else {
		app.logger.Warn("no REDIS_ADDR configured, using in-process ephemeral store")
		app.ephemeral = memory.NewStore()
	}

	app.keys = jwtx.NewKeySource(store.SigningKeys(app.ephemeral), store.SigningKeyKey)
	app.buildServices()
	app.buildRouter()

	return app, nil
}

func (app *Application) buildServices() {
	cfg := app.cfg.Service

	notifier := notify.Multi{Email: notify.Noop{}, Sms: notify.Noop{}}
	if app.cfg.SmtpHost != "" {
		notifier.Email = notify.NewEmailSender(
			app.cfg.SmtpHost, app.cfg.SmtpPort,
			app.cfg.SmtpUser, app.cfg.SmtpPassword, app.cfg.SmtpFrom)
	}
	if app.cfg.SmsWebhookURL != "" {
		notifier.Sms = notify.NewSmsWebhook(app.cfg.SmsWebhookURL)
	}

	var verifier service.CeremonyVerifier = ceremony.Disabled{}
	if app.cfg.PasskeyVerifierURL != "" {
		verifier = ceremony.NewWebhook(app.cfg.PasskeyVerifierURL)
	}

	lockout := service.NewLockoutGuard(app.ephemeral, cfg)
	app.tokens = service.NewTokenService(app.keys, app.ephemeral, app.cfg.Issuer, cfg)
	app.passkeys = service.NewPasskeyService(app.db, app.ephemeral, verifier, cfg)

	app.auth = &service.AuthorizeService{
		Store:    app.db,
		Tokens:   app.tokens,
		Mfa:      service.NewMfaService(app.db, app.ephemeral, notifier, lockout, app.cfg.Issuer, cfg),
		Passkeys: app.passkeys,
		Consent:  &service.ConsentGate{Store: app.db},
		Lockout:  lockout,
		Cfg:      cfg,
	}
	app.embedded = &service.EmbeddedService{Auth: app.auth}
	app.users = &service.UserService{Store: app.db, Cfg: cfg}
	app.bootstrap = &service.BootstrapService{Store: app.db, Apps: app.cfg.SeedApps}
	app.housekeeping = service.NewHousekeepingService(
		app.db, app.logger, app.cfg.HousekeepingInterval, app.cfg.SignInLogRetention)
}

func (app *Application) buildRouter() {
	app.router = httpapi.NewRouter(httpapi.RouterDeps{
		Logger:       app.logger,
		BuildVersion: BuildVersion,
		Store:        app.db,
		Ephemeral:    app.ephemeral,
		Keys:         app.keys,
		Cfg:          app.cfg.Service,
		Auth:         app.auth,
		Embedded:     app.embedded,
		Users:        app.users,
		Tokens:       app.tokens,
		Passkeys:     app.passkeys,
	})

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run provisions seed apps, starts housekeeping and the HTTP server, and
// blocks until SIGINT/SIGTERM triggers a graceful shutdown.
func (app *Application) Run() error {
	ctx := slogx.WithContext(context.Background(), app.logger)

	if err := app.bootstrap.Run(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	app.housekeeping.Start()
	defer app.housekeeping.Stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("http server listening", "addr", app.server.Addr)
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		app.logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, app.cfg.ShutdownGracePeriod)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return app.db.Close()
}
