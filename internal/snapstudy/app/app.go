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

	"github.com/yakshxo/snapstudy/internal/snapstudy/genai"
	httpapi "github.com/yakshxo/snapstudy/internal/snapstudy/http"
	"github.com/yakshxo/snapstudy/internal/snapstudy/notify"
	"github.com/yakshxo/snapstudy/internal/snapstudy/payment"
	"github.com/yakshxo/snapstudy/internal/snapstudy/service"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store"
	"github.com/yakshxo/snapstudy/internal/snapstudy/store/drivers/sqlite"
	"github.com/yakshxo/snapstudy/pkg/cryptox"
	"github.com/yakshxo/snapstudy/pkg/jwtx"
	"github.com/yakshxo/snapstudy/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the snapstudy service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	tokens *jwtx.HS256

	accountService      *service.AccountService
	flashcardService    *service.FlashcardService
	paymentService      *service.PaymentService
	profileService      *service.ProfileService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "snapstudy",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	tokens, err := jwtx.NewHS256([]byte(cfg.SessionSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("session secret: %w", err)
	}
	app.tokens = tokens

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("snapstudy starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down snapstudy...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("snapstudy stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
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

func (app *Application) initServices() {
	var notifier service.Notifier
	if app.cfg.SMTP.Host != "" {
		mailer, err := notify.NewMailNotifier(app.cfg.SMTP)
		if err != nil {
			app.logger.Error("smtp notifier unavailable, falling back to log notifier", "error", err)
			notifier = &notify.LogNotifier{Logger: app.logger}
		} else {
			notifier = mailer
		}
	} else {
		app.logger.Warn("SMTP_HOST unset, otp codes will be written to the log")
		notifier = &notify.LogNotifier{Logger: app.logger}
	}

	otp := &service.OTPIssuer{Store: app.db, TTL: app.cfg.OTPTTL}
	tokens := &service.TokenService{
		Signer:     app.tokens,
		Issuer:     app.cfg.Issuer,
		SessionTTL: app.cfg.SessionTTL,
	}
	credits := &service.CreditService{Store: app.db}

	app.accountService = &service.AccountService{
		Store:           app.db,
		OTP:             otp,
		Tokens:          tokens,
		Notifier:        notifier,
		StartingCredits: app.cfg.StartingCredits,
		UnlimitedEmails: app.cfg.UnlimitedEmails,
	}

	app.flashcardService = &service.FlashcardService{
		Store:     app.db,
		Credits:   credits,
		Generator: genai.NewOpenAIGenerator(app.cfg.OpenAIKey, app.cfg.OpenAIModel),
		Timeout:   app.cfg.GenerationTimeout,
	}

	app.paymentService = &service.PaymentService{
		Store:      app.db,
		Provider:   payment.NewStripeProvider(app.cfg.StripeSecretKey, app.cfg.StripeWebhookSecret),
		SuccessURL: app.cfg.CheckoutSuccessURL,
		CancelURL:  app.cfg.CheckoutCancelURL,
	}

	app.profileService = &service.ProfileService{
		Store:    app.db,
		OTP:      otp,
		Notifier: notifier,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.tokens, BuildVersion, app.db, app.logger)

	router.AccountService = app.accountService
	router.FlashcardService = app.flashcardService
	router.PaymentService = app.paymentService
	router.ProfileService = app.profileService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
