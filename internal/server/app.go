// Package server initializes and runs the auth server: key material, storage,
// migrations, the auth service, and the session janitor, with graceful
// shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/agrismart/auth/internal/cryptox"
	"github.com/agrismart/auth/internal/logging"
	"github.com/agrismart/auth/internal/server/config"
	"github.com/agrismart/auth/internal/server/identity"
	"github.com/agrismart/auth/internal/server/janitor"
	"github.com/agrismart/auth/internal/server/keystore"
	"github.com/agrismart/auth/internal/server/repositories/repomanager"
	"github.com/agrismart/auth/internal/server/services"
	"github.com/agrismart/auth/internal/server/token"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	authService *services.AuthService
	janitor     *janitor.Janitor
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewJSON()

	keys := keystore.New(keystore.Options{
		Directory:  cfg.KeyDirectory,
		Backend:    cfg.KeyBackend,
		Override:   cfg.KeyOverride,
		Caching:    cfg.KeyCacheEnabled,
		Passphrase: cfg.KeyPassphrase,
	}, logger)
	if err := keys.Generate(ctx); err != nil {
		return nil, fmt.Errorf("key generation error: %w", err)
	}
	if cfg.KeyCacheEnabled {
		if err := keys.Prime(); err != nil {
			return nil, fmt.Errorf("key cache error: %w", err)
		}
	}

	codec, err := token.NewCodec(keys, cfg.KeyBackend, cfg.TokenIssuer, cfg.TokenAudience)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	hasher := cryptox.NewBcryptHasher(0)
	verifier := identity.NewGoogleVerifier(cfg.GoogleClientID)
	as := services.NewAuthService(db, rm, codec, hasher, verifier, cfg, logger)
	jan := janitor.New(db, rm, cfg.JanitorInterval, cfg.JanitorErrorBackoff, logger)

	return &App{config: cfg, logger: logger, db: db, authService: as, janitor: jan}, nil
}

// AuthService exposes the wired auth operations to the transport layer.
func (app *App) AuthService() *services.AuthService {
	return app.authService
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the background workers and blocks until the context is
// cancelled or a termination signal arrives, then shuts down cleanly.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if app.config.JanitorEnabled {
		app.janitor.Start(ctx)
	}

	<-ctx.Done()

	if app.config.JanitorEnabled {
		app.janitor.Stop()
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), err.Error())
	}
	app.logger.Info(context.Background(), "App stopped")
}
