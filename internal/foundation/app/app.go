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

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	httpapi "github.com/cobaltgrid/foundation/internal/foundation/http"
	"github.com/cobaltgrid/foundation/internal/foundation/notify"
	"github.com/cobaltgrid/foundation/internal/foundation/service"
	"github.com/cobaltgrid/foundation/internal/foundation/store"
	"github.com/cobaltgrid/foundation/internal/foundation/store/drivers/sqlite"
	"github.com/cobaltgrid/foundation/pkg/cryptox"
	"github.com/cobaltgrid/foundation/pkg/jwtx"
	"github.com/cobaltgrid/foundation/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the foundation service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db   store.Store
	keys *jwtx.EdDSAKeyPair

	tokenService         *service.TokenService
	authService          *service.AuthService
	registrationService  *service.RegistrationService
	otpService           *service.OTPService
	totpService          *service.TOTPService
	socialLoginService   *service.SocialLoginService
	passwordResetService *service.PasswordResetService
	userService          *service.UserService
	permissionService    *service.PermissionService
	menuService          *service.MenuService
	currencyService      *service.CurrencyService
	housekeepingService  *service.HousekeepingService

	dispatcher *notify.Dispatcher

	server *http.Server
	router *httpapi.Router
}

// New creates an Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "foundation",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keys, err := jwtx.LoadOrGenerateKeyPair(cfg.SigningKeyFile, cfg.SigningKeyID, cfg.Issuer, cfg.Audience)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keys = keys

	app.initDispatcher()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.dispatcher.Start()
	app.housekeepingService.Start()

	app.logger.Info("foundation service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops the server, background workers and database in order.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down foundation service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.dispatcher.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("foundation service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initDispatcher wires the notification senders behind the async queue.
func (app *Application) initDispatcher() {
	senders := map[notify.Channel]notify.Sender{
		notify.ChannelEmail: notify.NewSMTPSender(notify.SMTPConfig{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUser,
			Password: app.cfg.SMTPPass,
			From:     app.cfg.SMTPFrom,
		}),
		notify.ChannelWhatsApp: notify.NewTwilioSender(notify.TwilioConfig{
			AccountSID: app.cfg.TwilioAccountSID,
			AuthToken:  app.cfg.TwilioAuthToken,
			From:       app.cfg.TwilioFrom,
		}),
	}
	app.dispatcher = notify.NewDispatcher(senders, app.logger, app.cfg.DispatchQueueSize)
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Signer:     app.keys,
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	app.authService = &service.AuthService{
		Store:  app.db,
		Tokens: app.tokenService,
	}
	app.registrationService = &service.RegistrationService{
		Store:    app.db,
		Tokens:   app.tokenService,
		Dispatch: app.dispatcher,
	}
	app.otpService = &service.OTPService{
		Store:    app.db,
		Auth:     app.authService,
		Dispatch: app.dispatcher,
		TTL:      app.cfg.OTPTTL,
	}
	app.totpService = &service.TOTPService{
		Store:  app.db,
		Auth:   app.authService,
		Issuer: app.cfg.Issuer,
	}
	app.socialLoginService = &service.SocialLoginService{
		Providers: map[domain.SocialProvider]service.Provider{
			domain.ProviderGoogle: service.NewGoogleProvider(service.ProviderConfig{
				ClientID:     app.cfg.GoogleClientID,
				ClientSecret: app.cfg.GoogleClientSecret,
				RedirectURL:  app.cfg.GoogleRedirectURL,
			}),
			domain.ProviderApple: service.NewAppleProvider(service.ProviderConfig{
				ClientID:     app.cfg.AppleClientID,
				ClientSecret: app.cfg.AppleClientSecret,
				RedirectURL:  app.cfg.AppleRedirectURL,
			}),
		},
		Store:    app.db,
		Tokens:   app.tokenService,
		Dispatch: app.dispatcher,
	}
	app.passwordResetService = &service.PasswordResetService{
		Store:    app.db,
		Tokens:   app.tokenService,
		Dispatch: app.dispatcher,
		TTL:      app.cfg.ResetTTL,
		LinkBase: app.cfg.ResetLinkBase,
	}

	app.userService = &service.UserService{Store: app.db}
	app.permissionService = &service.PermissionService{Store: app.db}
	app.menuService = &service.MenuService{Store: app.db}
	app.currencyService = &service.CurrencyService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.RegistrationService = app.registrationService
	router.OTPService = app.otpService
	router.TOTPService = app.totpService
	router.SocialLoginService = app.socialLoginService
	router.PasswordResetService = app.passwordResetService
	router.UserService = app.userService
	router.PermissionService = app.permissionService
	router.MenuService = app.menuService
	router.CurrencyService = app.currencyService
	router.Dispatch = app.dispatcher
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
