package auth

import (
	"context"
	stdErrors "errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"travelhub/internal/errors"
	"travelhub/internal/model"
	"travelhub/internal/retry"
)

const (
	claimsContextKey = "auth.claims"
	userContextKey   = "auth.user"
)

// UserLookup resolves the account behind a token.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// GateConfig configures a Gate.
type GateConfig struct {
	CookieName   string
	StoreTimeout time.Duration
	StoreRetries uint
}

// Gate is the single authorization layer in front of protected routes.
// Authenticate must run before RequireActive and RequireRole.
type Gate struct {
	tokens  *JWTService
	revoker TokenRevoker
	users   UserLookup
	cfg     GateConfig
	log     *zap.Logger
}

// NewGate creates a new authorization gate. revoker may be nil.
func NewGate(tokens *JWTService, revoker TokenRevoker, users UserLookup, cfg GateConfig, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 2 * time.Second
	}
	return &Gate{tokens: tokens, revoker: revoker, users: users, cfg: cfg, log: log}
}

// Authenticate rejects requests without a valid, unrevoked token.
func (g *Gate) Authenticate() echo.MiddlewareFunc {
	return echojwt.WithConfig(g.jwtConfig(false))
}

// Optional parses a token when present and lets the request through otherwise.
func (g *Gate) Optional() echo.MiddlewareFunc {
	return echojwt.WithConfig(g.jwtConfig(true))
}

func (g *Gate) jwtConfig(optional bool) echojwt.Config {
	lookup := "header:" + echo.HeaderAuthorization + ":Bearer "
	if g.cfg.CookieName != "" {
		lookup += ",cookie:" + g.cfg.CookieName
	}

	cfg := echojwt.Config{
		TokenLookup:    lookup,
		ContextKey:     claimsContextKey,
		ParseTokenFunc: g.parseToken,
		ErrorHandler: func(c echo.Context, err error) error {
			return deny(http.StatusUnauthorized, "authentication required", "UNAUTHENTICATED")
		},
	}
	if optional {
		cfg.ContinueOnIgnoredError = true
		cfg.ErrorHandler = func(c echo.Context, err error) error {
			return nil
		}
	}
	return cfg
}

func (g *Gate) parseToken(c echo.Context, raw string) (interface{}, error) {
	claims, err := g.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}
	if g.revoker == nil {
		return claims, nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), g.cfg.StoreTimeout)
	defer cancel()
	revoked, err := g.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		g.log.Warn("revocation lookup failed, rejecting token", zap.String("jti", claims.ID), zap.Error(err))
		return nil, ErrInvalidToken
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RequireRole rejects authenticated requests whose role is not role.
// The freshly loaded user wins over the token claims when RequireActive ran first.
func (g *Gate) RequireRole(role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return deny(http.StatusUnauthorized, "authentication required", "UNAUTHENTICATED")
			}
			current := claims.Role
			if user := UserFrom(c); user != nil {
				current = user.Role
			}
			if current != role {
				return deny(http.StatusForbidden, errors.ErrForbiddenRole.Error(), "FORBIDDEN")
			}
			return next(c)
		}
	}
}

// RequireActive re-reads the user behind the token and rejects it when it is
// gone or deactivated. A store that does not answer fails the request closed.
func (g *Gate) RequireActive() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return deny(http.StatusUnauthorized, "authentication required", "UNAUTHENTICATED")
			}
			id, err := uuid.Parse(claims.UserID)
			if err != nil {
				return deny(http.StatusUnauthorized, "authentication required", "UNAUTHENTICATED")
			}

			user, err := g.loadUser(c.Request().Context(), id)
			switch {
			case stdErrors.Is(err, gorm.ErrRecordNotFound):
				return deny(http.StatusUnauthorized, "authentication required", "UNAUTHENTICATED")
			case err != nil:
				g.log.Error("user lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
				return deny(http.StatusServiceUnavailable, errors.ErrStoreUnavailable.Error(), "STORE_UNAVAILABLE")
			case !user.Active:
				return deny(http.StatusUnauthorized, errors.ErrAccountInactive.Error(), "ACCOUNT_INACTIVE")
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

func (g *Gate) loadUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.StoreTimeout)
	defer cancel()

	return retry.Do(ctx, g.cfg.StoreRetries, func(ctx context.Context) (*model.User, error) {
		user, err := g.users.FindByID(ctx, id)
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, retry.Permanent(err)
		}
		return user, err
	})
}

// ClaimsFrom returns the verified claims of the request, or nil.
func ClaimsFrom(c echo.Context) *Claims {
	claims, _ := c.Get(claimsContextKey).(*Claims)
	return claims
}

// UserFrom returns the user loaded by RequireActive, or nil.
func UserFrom(c echo.Context) *model.User {
	user, _ := c.Get(userContextKey).(*model.User)
	return user
}

func deny(status int, message, code string) error {
	return echo.NewHTTPError(status, errors.ErrorResponse{Error: message, Code: code})
}
