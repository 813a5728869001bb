package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/auth"
	"github.com/doaamohamed88/shortLinks/internal/config"
	"github.com/doaamohamed88/shortLinks/internal/geo"
	"github.com/doaamohamed88/shortLinks/internal/handler"
	"github.com/doaamohamed88/shortLinks/internal/middleware"
	"github.com/doaamohamed88/shortLinks/internal/repository"
	"github.com/doaamohamed88/shortLinks/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const visitLatchTTL = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if cfg.App.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	if !cfg.Auth.Configured() {
		logger.Warn("ADMIN_EMAIL is not set, every login will be rejected")
	}

	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = repository.Migrate(migrateCtx, db)
	cancelMigrate()
	if err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	aliasRepo := repository.NewAliasRepository(db)
	cacheRepo := repository.NewCacheRepository(redis)
	notifier := repository.NewChangeNotifier(redis)
	sessionRepo := repository.NewSessionRepository(redis)
	visitLatch := repository.NewVisitLatch(redis, visitLatchTTL)

	locator, closeLocator := newLocator(cfg.Geo, logger)
	defer closeLocator()
	classifier := geo.NewClassifier(locator, cfg.Geo.Timeout, logger)

	sessions, err := auth.NewSessionManager(sessionRepo, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, logger)
	if err != nil {
		logger.Fatal("Failed to create session manager", zap.Error(err))
	}
	defer sessions.Shutdown()

	policy := auth.NewPolicy(cfg.Auth.AdminEmail)
	detachEnforcer := auth.NewEnforcer(policy, sessions, logger).Attach()
	defer detachEnforcer()

	provider := auth.NewOAuthProvider(cfg.Identity, &http.Client{Timeout: 10 * time.Second})
	authService := auth.NewAuthService(provider, sessions, policy, logger)

	recorder := service.NewVisitRecorder(aliasRepo, notifier, logger)
	recorder.Start()

	watcher := service.NewWatcher(aliasRepo, notifier, logger)
	aliasService := service.NewAliasService(aliasRepo, cacheRepo, notifier, watcher, logger)
	resolver := service.NewRedirectResolver(service.ResolverDeps{
		Aliases:  aliasRepo,
		Cache:    cacheRepo,
		Notifier: notifier,
		Geo:      classifier,
		Latch:    visitLatch,
		Recorder: recorder,
	}, cfg.Redirect.CountFailureFatal, logger)

	loginLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	defer loginLimiter.Stop()

	router, err := handler.NewRouter(aliasService, resolver, authService, loginLimiter, handler.RouterConfig{
		BaseURL:        cfg.App.BaseURL,
		CORSOrigins:    cfg.App.CORSOrigins,
		SecureCookies:  cfg.App.Production,
		TrustedProxies: cfg.App.TrustedProxies,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Live streams never finish on their own; end them before draining.
	watcher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	recorder.Stop()
	logger.Info("Server exited")
}

// newLocator prefers a local GeoIP database and falls back to the HTTP API.
func newLocator(cfg config.GeoConfig, logger *zap.Logger) (geo.Locator, func()) {
	if cfg.DBPath != "" {
		locator, err := geo.OpenGeoIP(cfg.DBPath)
		if err == nil {
			logger.Info("Using GeoIP database", zap.String("path", cfg.DBPath))
			return locator, func() { locator.Close() }
		}
		logger.Warn("GeoIP database unavailable, using HTTP API", zap.Error(err))
	}

	logger.Info("Using geolocation API", zap.String("url", cfg.APIURL))
	return geo.NewHTTPLocator(cfg.APIURL, &http.Client{Timeout: cfg.Timeout}), func() {}
}
