package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/memorial/internal/ai"
	"github.com/simp-lee/memorial/internal/config"
	"github.com/simp-lee/memorial/internal/domain"
	"github.com/simp-lee/memorial/internal/middleware"
	"github.com/simp-lee/memorial/internal/module/auth"
	"github.com/simp-lee/memorial/internal/module/obituary"
	"github.com/simp-lee/memorial/internal/module/user"
)

const (
	defaultWriteTimeout    = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	// Headroom left on top of ai.timeout so a slow completion can still be
	// written back.
	aiWriteHeadroom = 5 * time.Second
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	db     *gorm.DB
	logger *logger.Logger
	cfg    *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, writeTimeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New builds the registry from cfg: logger, store, token issuer, biography
// generator, the auth, user and obituary modules, middleware and routes.
// Resources opened before a failure are released again.
func New(cfg *config.Config) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	var closers []func() error
	defer func() {
		if err == nil {
			return
		}
		for _, closeFn := range slices.Backward(closers) {
			if cerr := closeFn(); cerr != nil {
				slog.Error("release after failed start", slog.Any("error", cerr))
			}
		}
	}()

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	closers = append(closers, log.Close)

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}

	// Migrates when database.auto_migrate is set.
	db, err := config.SetupDatabase(&cfg.Database, log.Logger,
		&domain.Role{}, &domain.User{}, &domain.Obituary{})
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	closers = append(closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	// Token issuance and verification share one issuer.
	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience,
		config.Duration(cfg.Auth.TokenExpiry))
	if err != nil {
		return nil, fmt.Errorf("setup token issuer: %w", err)
	}

	var metrics *middleware.Metrics
	if cfg.Server.Metrics.Enabled {
		metrics = middleware.NewMetrics()
	}

	modules, err := buildModules(cfg, db, issuer, metrics, log.Logger)
	if err != nil {
		return nil, err
	}

	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	quietPaths := []string{"/health"}
	if metrics != nil {
		quietPaths = append(quietPaths, cfg.Server.Metrics.Path)
	}

	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: cfg.Server.TrustRequestID,
		}),
		middleware.LoggerWithConfig(log.Logger, middleware.LoggerConfig{
			SkipPaths:     quietPaths,
			SlowThreshold: config.Duration(cfg.Server.SlowRequest),
		}),
		middleware.CORSWithConfig(resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}

	biography := cmp.Or(cfg.AI.Provider, "disabled")
	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:     modules,
		DB:          db,
		Health:      map[string]string{"biography": biography},
		Metrics:     metrics,
		MetricsPath: cfg.Server.Metrics.Path,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	return &App{
		engine: engine,
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

// buildModules wires the user, auth and obituary modules.
func buildModules(cfg *config.Config, db *gorm.DB, issuer *auth.TokenIssuer, metrics *middleware.Metrics, log *slog.Logger) ([]Module, error) {
	requireAuth := middleware.RequireAuth(issuer, log)

	// Login, registration and generation get separate buckets so a burst of
	// biography requests cannot lock a client out of signing in.
	var authLimit, generateLimit []gin.HandlerFunc
	if rl := cfg.Server.RateLimit; rl.Enabled {
		authLimit = append(authLimit, newRateLimiter(rl).Middleware())
		generateLimit = append(generateLimit, newRateLimiter(rl).Middleware())
	}

	userRepo := user.NewRepository(db)
	userModule := user.NewModule(user.NewService(userRepo), requireAuth)
	authModule := auth.NewModule(auth.NewService(issuer, userRepo, log), authLimit...)

	gen, err := ai.New(context.Background(), &cfg.AI, log)
	if err != nil {
		return nil, fmt.Errorf("setup biography generator: %w", err)
	}
	if gen == nil {
		log.Info("biography generation disabled: ai.provider is empty")
	} else {
		log.Info("biography generation enabled", slog.String("provider", gen.Provider()))
		if metrics != nil {
			gen = ai.WithMetrics(gen, metrics.Registerer())
		}
	}
	prompts, err := ai.NewPromptBuilder(cfg.AI.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("setup biography prompt: %w", err)
	}

	var cache *obituary.DetailCache
	if c := cfg.Obituary.Cache; c.Enabled {
		cache = obituary.NewDetailCache(config.Duration(c.TTL), config.Duration(c.CleanupInterval))
	}

	if !cfg.Obituary.EnforceOwnership {
		log.Warn("obituary ownership is not enforced: any signed-in user may update or delete any obituary",
			slog.String("setting", "obituary.enforce_ownership"))
	}

	obituarySvc := obituary.NewService(obituary.NewRepository(db), obituary.ServiceOptions{
		EnforceOwnership: cfg.Obituary.EnforceOwnership,
		MaxPhotoBytes:    cfg.Obituary.MaxPhotoBytes,
		Cache:            cache,
		Logger:           log,
	})
	biographySvc := obituary.NewBiographyService(gen, prompts, log)
	obituaryModule := obituary.NewModule(obituary.NewHandler(obituarySvc, biographySvc), requireAuth, generateLimit...)

	return []Module{authModule, userModule, obituaryModule}, nil
}

func newRateLimiter(cfg config.RateLimitConfig) *middleware.RateLimiter {
	return middleware.NewRateLimiter(middleware.RateLimitConfig{
		RPS:     cfg.RPS,
		Burst:   cfg.Burst,
		IdleTTL: config.Duration(cfg.IdleTTL),
	})
}

// resolveCORSConfig overlays configured CORS settings on the defaults.
// In release mode, when no allowlist is configured, cross-origin requests
// are denied.
func resolveCORSConfig(mode string, cfg config.CORSConfig) middleware.CORSConfig {
	corsConfig := middleware.DefaultCORSConfig()

	switch {
	case len(cfg.AllowOrigins) > 0:
		corsConfig.AllowOrigins = cfg.AllowOrigins
	case mode == gin.ReleaseMode:
		corsConfig.AllowOrigins = []string{}
	}
	if len(cfg.AllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AllowHeaders
	}
	corsConfig.AllowCredentials = cfg.AllowCredentials
	if maxAge := config.Duration(cfg.MaxAge); maxAge > 0 {
		corsConfig.MaxAge = maxAge
	}

	return corsConfig
}

// writeTimeout is server.timeout, raised when needed so biography
// generation can finish within ai.timeout.
func writeTimeout(cfg *config.Config) time.Duration {
	timeout := config.Duration(cfg.Server.Timeout)
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	if cfg.AI.Provider != "" {
		if floor := config.Duration(cfg.AI.Timeout) + aiWriteHeadroom; timeout < floor {
			timeout = floor
		}
	}
	return timeout
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if d := config.Duration(cfg.Server.ShutdownTimeout); d > 0 {
		return d
	}
	return defaultShutdownTimeout
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

// Run serves until SIGINT or SIGTERM, lets in-flight requests finish within
// server.shutdown_timeout, then closes the store and the logger.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, writeTimeout(a.cfg))

	// Listen for SIGINT / SIGTERM.
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(a.cfg))
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	log.Info("server stopped")
	if err := a.Close(); err != nil {
		slog.Error("close resources", slog.Any("error", err))
	}

	return runErr
}

// Close releases the database connection and the logger. Run calls it on the
// way out; callers that only use Handler must call it themselves.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close logger: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Handler exposes the configured engine, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.engine
}
