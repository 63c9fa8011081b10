package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"travelhub/internal/auth"
	"travelhub/internal/config"
	"travelhub/internal/errors"
	"travelhub/internal/handler"
	"travelhub/internal/model"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log *zap.Logger,
	gate *auth.Gate,
	authHandler *handler.AuthHandler,
	moduleHandler *handler.ModuleHandler,
	settingsHandler *handler.SettingsHandler,
	paymentHandler *handler.PaymentHandler,
) {
	e.HTTPErrorHandler = ErrorHandler(e, log)
	e.Validator = NewValidator()

	e.Use(middleware.RequestID())
	e.Use(RequestLogger(log))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")
	limited := LoginRateLimiter(cfg.LoginRate, cfg.LoginBurst)

	// Public routes
	api.POST("/auth/register", authHandler.Register, limited)
	api.POST("/auth/login", authHandler.Login, limited)
	api.POST("/auth/admin/login", authHandler.AdminLogin, limited)
	api.POST("/auth/forgot-password", authHandler.ForgotPassword, limited)
	api.POST("/auth/reset-password", authHandler.ResetPassword, limited)
	api.POST("/auth/logout", authHandler.Logout, gate.Optional())
	api.GET("/modules", moduleHandler.ListActive)

	// Signed-in routes
	member := api.Group("", gate.Authenticate(), gate.RequireActive())
	member.GET("/auth/verify", authHandler.Verify)
	member.POST("/payments", paymentHandler.Create)
	member.GET("/payments", paymentHandler.ListMine)

	// Admin-only routes
	adminOnly := []echo.MiddlewareFunc{gate.Authenticate(), gate.RequireActive(), gate.RequireRole(model.RoleAdmin)}

	modules := api.Group("/modules", adminOnly...)
	modules.POST("", moduleHandler.Create)
	modules.PUT("/:id", moduleHandler.Update)
	modules.DELETE("/:id", moduleHandler.Delete)

	admin := api.Group("/admin", adminOnly...)
	admin.GET("/modules", moduleHandler.List)
	admin.GET("/settings", settingsHandler.Get)
	admin.PUT("/settings", settingsHandler.Put)
	admin.GET("/payments", paymentHandler.ListAll)
	admin.PATCH("/payments/:id/status", paymentHandler.UpdateStatus)
	admin.GET("/payments/:id/logs", paymentHandler.History)
}

// LoginRateLimiter throttles credential endpoints per client IP.
func LoginRateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	if perSecond <= 0 {
		perSecond = 5
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(perSecond),
		Burst: burst,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
				Error: "unable to identify client",
				Code:  "FORBIDDEN",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
				Error: "too many requests",
				Code:  "RATE_LIMITED",
			})
		},
	})
}
