// Package server wires configuration, storage, services and transports
// together and runs the REST and gRPC endpoints until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophrewards/internal/logging"
	"github.com/dmitrijs2005/gophrewards/internal/server/config"
	"github.com/dmitrijs2005/gophrewards/internal/server/credentials"
	"github.com/dmitrijs2005/gophrewards/internal/server/httpapi"
	"github.com/dmitrijs2005/gophrewards/internal/server/metrics"
	"github.com/dmitrijs2005/gophrewards/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophrewards/internal/server/remoteauth"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophrewards/internal/server/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/gophrewards/internal/server/grpc"
)

const (
	startupPingTimeout = 10 * time.Second
	shutdownTimeout    = 10 * time.Second
	tokenPurgeInterval = time.Hour
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	metrics     *metrics.Metrics
	ledger      *sql.DB
	wordpress   *sql.DB
	redis       redis.UniversalClient
	auth        *services.AuthService
	loyalty     *services.LoyaltyService
	rewards     *services.RewardService
	redemptions *services.RedemptionService
}

// NewLogger builds the process logger from the logging settings in c.
func NewLogger(c *config.Config) (logging.Logger, error) {
	return logging.New(os.Stdout, logging.Options{Backend: c.LogBackend, Format: c.LogFormat, Level: c.LogLevel})
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := NewLogger(c)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	rm, err := repomanager.NewSQLRepositoryManager(c.WordPressTablePrefix)
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}

	app := &App{config: c, logger: logger, metrics: metrics.New()}

	if app.ledger, err = repomanager.OpenLedger(c.DatabaseDSN); err != nil {
		return nil, err
	}
	if app.wordpress, err = repomanager.OpenWordPress(c.WordPressDSN); err != nil {
		app.Close()
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := app.ledger.PingContext(pingCtx); err != nil {
		app.Close()
		return nil, fmt.Errorf("ledger db unreachable: %w", err)
	}
	if err := app.wordpress.PingContext(pingCtx); err != nil {
		app.Close()
		return nil, fmt.Errorf("wordpress db unreachable: %w", err)
	}

	if c.MigrateOnStart {
		if err := rm.RunMigrations(ctx, app.ledger); err != nil {
			app.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
	}

	var remote credentials.RemoteAuthenticator
	if c.WordPressLoginURL != "" {
		wp := remoteauth.NewWordPressAuthenticator(c.WordPressLoginURL, c.RemoteFallbackTimeout)
		remote = remoteauth.WithObserver(wp, app.metrics.RemoteFallback)
	}
	verifier := credentials.NewVerifier(remote, c.BcryptCost, logger.With("module", "credentials"))
	hasher := credentials.NewHasher(c.BcryptCost)

	authOpts := []services.AuthOption{
		services.WithAuthMetrics(app.metrics),
		services.WithAuthLogger(logger.With("module", "auth")),
	}
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		authOpts = append(authOpts, services.WithLoginLimiter(
			ratelimit.NewLoginLimiter(app.redis, c.LoginMaxAttempts, c.LoginWindow)))
	} else {
		logger.Warn(ctx, "redis not configured, login throttling disabled")
	}

	app.auth = services.NewAuthService(app.ledger, app.wordpress, rm, c, verifier, hasher, authOpts...)
	app.loyalty = services.NewLoyaltyService(app.ledger, app.wordpress, rm, logger.With("module", "loyalty"))
	app.rewards = services.NewRewardService(app.ledger, rm, c, logger.With("module", "rewards"))
	app.redemptions = services.NewRedemptionService(app.ledger, app.wordpress, rm, app.metrics, logger.With("module", "redemptions"))

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context) error {
	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.auth, app.loyalty, app.rewards, app.redemptions)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

func (app *App) startHTTPServer(ctx context.Context) error {
	h := httpapi.NewHandler(app.auth, app.loyalty, app.rewards, app.redemptions,
		app.ledger.PingContext, app.logger.With("module", "http"))

	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           httpapi.NewServeMux(h, app.metrics, app.config.CORSAllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// purgeTokens removes expired refresh tokens once per interval.
func (app *App) purgeTokens(ctx context.Context) error {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n, err := app.auth.PurgeExpiredTokens(ctx, now); err == nil && n > 0 {
				app.logger.Info(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}

// Run serves until ctx is cancelled, a signal arrives or a listener fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.startGRPCServer(ctx) })
	g.Go(func() error { return app.startHTTPServer(ctx) })
	g.Go(func() error { return app.purgeTokens(ctx) })

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

// Close releases database and Redis connections.
func (app *App) Close() error {
	var errs []error
	if app.ledger != nil {
		errs = append(errs, app.ledger.Close())
	}
	if app.wordpress != nil {
		errs = append(errs, app.wordpress.Close())
	}
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	return errors.Join(errs...)
}
