package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	stdErrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"travelhub/internal/auth"
	"travelhub/internal/errors"
	"travelhub/internal/model"
	"travelhub/internal/repository"
)

const (
	minPasswordLen   = 6
	maxPasswordBytes = 72
	resetTokenSize   = 32
)

// Portal selects which login policy applies.
type Portal string

const (
	// PortalStorefront accepts any active user.
	PortalStorefront Portal = "storefront"
	// PortalAdmin accepts active admins only.
	PortalAdmin Portal = "admin"
)

// RegisterInput carries a self-service sign-up.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	CPF      string
}

// AuthResult is a freshly issued session.
type AuthResult struct {
	Token  string
	Claims *auth.Claims
	User   *model.User
}

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, link string, ttl time.Duration) error
}

// AuthConfig holds password reset settings.
type AuthConfig struct {
	ResetTokenTTL time.Duration
	ResetURLBase  string
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string, portal Portal) (*AuthResult, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

type authService struct {
	users   repository.UserRepository
	resets  repository.PasswordResetRepository
	hasher  *auth.PasswordHasher
	tokens  *auth.JWTService
	revoker auth.TokenRevoker
	mailer  Mailer
	cfg     AuthConfig
	log     *zap.Logger
	now     func() time.Time
}

// NewAuthService creates a new authentication service. revoker and mailer may be nil.
func NewAuthService(
	users repository.UserRepository,
	resets repository.PasswordResetRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.JWTService,
	revoker auth.TokenRevoker,
	mailer Mailer,
	cfg AuthConfig,
	log *zap.Logger,
) AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	return &authService{
		users:   users,
		resets:  resets,
		hasher:  hasher,
		tokens:  tokens,
		revoker: revoker,
		mailer:  mailer,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active client account and signs it in.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, errors.ErrDuplicateEmail
	} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	var cpf *string
	if c := strings.TrimSpace(in.CPF); c != "" {
		if _, err := s.users.FindByCPF(ctx, c); err == nil {
			return nil, errors.ErrDuplicateCPF
		} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check cpf: %w", err)
		}
		cpf = &c
	}
	var phone *string
	if p := strings.TrimSpace(in.Phone); p != "" {
		phone = &p
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hashed,
		Role:         model.RoleClient,
		Active:       true,
		Phone:        phone,
		CPF:          cpf,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race against a concurrent sign-up; find out which column collided.
		if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
			if cpf != nil {
				if _, lookupErr := s.users.FindByCPF(ctx, *cpf); lookupErr == nil {
					return nil, errors.ErrDuplicateCPF
				}
			}
			return nil, errors.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// Login checks credentials against the policy of portal.
func (s *authService) Login(ctx context.Context, email, password string, portal Portal) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, errors.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, errors.ErrAccountInactive
	}
	if portal == PortalAdmin && !user.IsAdmin() {
		s.log.Warn("non-admin attempted admin login", zap.String("user_id", user.ID.String()))
		return nil, errors.ErrForbiddenRole
	}

	return s.issue(user)
}

func (s *authService) issue(user *model.User) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, Claims: claims, User: user}, nil
}

// Logout revokes the token until it would have expired anyway. Failures are
// logged and swallowed; the client discards its token regardless.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || s.revoker == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, s.tokens.Remaining(claims)); err != nil {
		s.log.Warn("token revocation failed", zap.String("jti", claims.ID), zap.Error(err))
	}
	return nil
}

// RequestPasswordReset mails a single-use reset link. Unknown or inactive
// accounts succeed silently.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if !user.Active {
		return nil
	}

	secret, err := newResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	token := &model.PasswordResetToken{
		Token:     hashResetToken(secret),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.cfg.ResetTokenTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if s.mailer == nil {
		s.log.Warn("no mailer configured, reset link not sent", zap.String("user_id", user.ID.String()))
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, s.resetLink(secret), s.cfg.ResetTokenTTL); err != nil {
		s.log.Error("send reset email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

// checkPassword enforces the length policy: at least 6 characters and at most
// the 72 bytes bcrypt hashes.
func checkPassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return errors.ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return errors.ErrPasswordTooLong
	}
	return nil
}

func (s *authService) resetLink(token string) string {
	u, err := url.Parse(s.cfg.ResetURLBase)
	if err != nil {
		return s.cfg.ResetURLBase + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// ResetPassword consumes token and replaces the password of its owner.
func (s *authService) ResetPassword(ctx context.Context, token, password string) error {
	if err := checkPassword(password); err != nil {
		return err
	}

	reset, err := s.resets.FindByToken(ctx, hashResetToken(token))
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}
	if reset.Used {
		return errors.ErrResetTokenUsed
	}
	now := s.now()
	if reset.Expired(now) {
		return errors.ErrResetTokenExpired
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.resets.Consume(ctx, reset.ID, reset.UserID, hashed, now)
	switch {
	case stdErrors.Is(err, repository.ErrTokenAlreadyConsumed):
		return errors.ErrResetTokenUsed
	case stdErrors.Is(err, gorm.ErrRecordNotFound):
		return errors.ErrResetTokenInvalid
	case err != nil:
		return fmt.Errorf("consume reset token: %w", err)
	}

	s.log.Info("password reset", zap.String("user_id", reset.UserID.String()))
	return nil
}

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// hashResetToken is what gets stored; the raw token only ever travels by mail.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
