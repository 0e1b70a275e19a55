package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/sbilab/dataviz/internal/http"
	"github.com/sbilab/dataviz/internal/service"
	"github.com/sbilab/dataviz/internal/store"
	"github.com/sbilab/dataviz/internal/store/drivers/mongo"
	"github.com/sbilab/dataviz/pkg/jwtx"
	"github.com/sbilab/dataviz/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the dataviz backend with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	userService    *service.UserService
	oauthService   *service.OAuthService
	authnService   *service.AuthnService
	datasetService *service.DatasetService
	plotService    *service.PlotService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. The document
// store client is constructed here once and threaded through; nothing holds
// it globally.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "dataviz",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	signer, err := jwtx.NewHMAC(cfg.JWTAlgorithm, cfg.JWTSecret)
	if err != nil {
		_ = app.db.Close(ctx)
		return nil, fmt.Errorf("configure token signer: %w", err)
	}

	app.initServices(signer)
	app.initHTTP(signer)

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("dataviz backend starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	app.logger.Info("shutting down dataviz backend...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(ctx); err != nil {
		app.logger.Error("error closing document store", "error", err)
		return err
	}

	app.logger.Info("dataviz backend stopped")
	return nil
}

// initDatabase connects the document store and bootstraps its indexes.
func (app *Application) initDatabase(ctx context.Context) error {
	db, err := mongo.NewStore(ctx, app.cfg.MongoURL, app.cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("connect document store: %w", err)
	}
	app.db = db

	if err := db.EnsureIndexes(ctx); err != nil {
		_ = db.Close(ctx)
		return fmt.Errorf("ensure indexes: %w", err)
	}

	app.logger.Info("document store ready", "database", app.cfg.MongoDatabase)
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices(signer *jwtx.HMAC) {
	app.userService = &service.UserService{Store: app.db}
	app.oauthService = service.NewOAuthService(app.cfg.GoogleClientID)
	app.authnService = service.NewAuthnService(app.userService, signer, app.oauthService)
	app.datasetService = &service.DatasetService{Store: app.db}
	app.plotService = &service.PlotService{
		Store:    app.db,
		Datasets: app.datasetService,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP(signer *jwtx.HMAC) {
	router := httpapi.NewRouter(
		signer,
		app.cfg.Issuer,
		app.cfg.AccessTokenTTL(),
		BuildVersion,
		app.cfg.CORSOrigins,
		app.db,
		app.logger,
	)

	router.UserService = app.userService
	router.OAuthService = app.oauthService
	router.AuthnService = app.authnService
	router.DatasetService = app.datasetService
	router.PlotService = app.plotService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
