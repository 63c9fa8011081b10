package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"travelhub/internal/auth"
	"travelhub/internal/model"
	"travelhub/internal/service"
)

// CookieConfig controls the back-office session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	cookie      CookieConfig
	log         *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, cookie CookieConfig, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{authService: authService, cookie: cookie, log: log}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	CPF      string `json:"cpf" validate:"omitempty,max=14"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest asks for a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest consumes a reset link.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// UserResponse wraps the current user.
type UserResponse struct {
	User *model.User `json:"user"`
}

func toAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{
		Token:     res.Token,
		ExpiresAt: res.Claims.ExpiresAt.Time,
		User:      res.User,
	}
}

// Register godoc
// @Summary Register a new client
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		CPF:      req.CPF,
	})
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusCreated, toAuthResponse(res))
}

// Login godoc
// @Summary Login to the storefront
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password, service.PortalStorefront)
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// AdminLogin godoc
// @Summary Login to the back-office
// @Description Sets an httpOnly session cookie in addition to returning the token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password, service.PortalAdmin)
	if err != nil {
		return fail(err)
	}

	ttl := res.Claims.ExpiresAt.Sub(res.Claims.IssuedAt.Time)
	c.SetCookie(auth.SessionCookie(h.cookie.Name, res.Token, ttl, h.cookie.Secure))
	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// Verify godoc
// @Summary Return the user behind the current token
// @Description Must be mounted behind RequireActive, which loads the user.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /auth/verify [get]
func (h *AuthHandler) Verify(c echo.Context) error {
	user := auth.UserFrom(c)
	if user == nil {
		return unauthenticated()
	}
	return c.JSON(http.StatusOK, UserResponse{User: user})
}

// Logout godoc
// @Summary Logout
// @Description Always succeeds. Revokes the presented token, if any, and clears the session cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	_ = h.authService.Logout(c.Request().Context(), auth.ClaimsFrom(c))
	c.SetCookie(auth.ClearCookie(h.cookie.Name, h.cookie.Secure))
	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// ForgotPassword godoc
// @Summary Request a password reset link
// @Description Responds the same whether or not the email is registered.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		h.log.Error("password reset request failed", zap.Error(err))
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Message: "if the email is registered, a reset link has been sent",
	})
}

// ResetPassword godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
