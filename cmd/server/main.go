package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	_ "travelhub/docs" // swagger docs

	"travelhub/internal/auth"
	"travelhub/internal/cache"
	"travelhub/internal/config"
	"travelhub/internal/db"
	"travelhub/internal/handler"
	"travelhub/internal/logger"
	"travelhub/internal/notify"
	"travelhub/internal/repository"
	"travelhub/internal/router"
	"travelhub/internal/service"
	"travelhub/internal/settings"
)

const moduleCacheTTL = 5 * time.Minute

// @title TravelHub API
// @version 1.0
// @description Travel booking back end: accounts, sessions, front-end module registry, admin settings and booking payments.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.NewMySQL(ctx, cfg.MySQLDSN)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()
	if err := cacheClient.Ping(ctx); err != nil {
		// Revocation checks fail closed while redis is down; the registry falls back to the database.
		log.Warn("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	userRepo := repository.NewUserRepository(gormDB)
	resetRepo := repository.NewPasswordResetRepository(gormDB)
	moduleRepo := repository.NewModuleRepository(gormDB)
	paymentRepo := repository.NewPaymentRepository(gormDB)

	jwtService, err := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	tokenStore := auth.NewTokenStore(cacheClient)
	hasher := auth.NewPasswordHasher(auth.DefaultBcryptCost)

	settingsStore := settings.NewStore(cfg.SettingsFile)
	mailer := notify.NewEmailNotifier(cfg.SMTP, settingsStore, log)

	authService := service.NewAuthService(
		userRepo,
		resetRepo,
		hasher,
		jwtService,
		tokenStore,
		mailer,
		service.AuthConfig{ResetTokenTTL: cfg.ResetTokenTTL, ResetURLBase: cfg.ResetURLBase},
		log,
	)
	moduleService := service.NewModuleService(moduleRepo, cacheClient, service.ModuleConfigOptions{
		StoreTimeout: cfg.StoreTimeout,
		StoreRetries: cfg.StoreRetries,
		CacheTTL:     moduleCacheTTL,
	}, log)
	paymentService := service.NewPaymentService(paymentRepo, log)

	gate := auth.NewGate(jwtService, tokenStore, userRepo, auth.GateConfig{
		CookieName:   cfg.CookieName,
		StoreTimeout: cfg.StoreTimeout,
		StoreRetries: cfg.StoreRetries,
	}, log)

	authHandler := handler.NewAuthHandler(authService, handler.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.IsProduction(),
	}, log)
	moduleHandler := handler.NewModuleHandler(moduleService)
	settingsHandler := handler.NewSettingsHandler(settingsStore)
	paymentHandler := handler.NewPaymentHandler(paymentService)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(
		e,
		cfg,
		log,
		gate,
		authHandler,
		moduleHandler,
		settingsHandler,
		paymentHandler,
	)

	swaggerURL := cfg.SwaggerHost
	switch {
	case swaggerURL == "":
		swaggerURL = "http://localhost:" + cfg.ServerPort
	case !strings.HasPrefix(swaggerURL, "http://") && !strings.HasPrefix(swaggerURL, "https://"):
		swaggerURL = "http://" + swaggerURL
	}
	log.Info("server starting",
		zap.String("port", cfg.ServerPort),
		zap.String("env", cfg.Env),
		zap.String("swagger", swaggerURL+"/swagger/index.html"),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
