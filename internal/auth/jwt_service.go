package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"travelhub/internal/model"
)

const (
	// ClientTokenExpiry is the lifetime of a storefront session.
	ClientTokenExpiry = 7 * 24 * time.Hour
	// AdminTokenExpiry is the lifetime of a back-office session.
	AdminTokenExpiry = 24 * time.Hour
)

var (
	// ErrInvalidToken covers every verification failure: missing, malformed,
	// expired, forged or issued by someone else.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptySecret is returned when the signing key is not configured.
	ErrEmptySecret = errors.New("jwt signing secret is empty")
)

// Claims represents JWT claims.
type Claims struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	Name   string     `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TTLFor returns the session lifetime for role.
func TTLFor(role model.Role) time.Duration {
	if role == model.RoleAdmin {
		return AdminTokenExpiry
	}
	return ClientTokenExpiry
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option configures a JWTService.
type Option func(*JWTService)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		s.now = now
	}
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret, issuer string, opts ...Option) (*JWTService, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	s := &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for user with the lifetime of its role.
func (s *JWTService) Issue(user *model.User) (string, *Claims, error) {
	return s.IssueWithTTL(user, TTLFor(user.Role))
}

// IssueWithTTL signs a token for user that expires ttl from now.
func (s *JWTService) IssueWithTTL(user *model.User, ttl time.Duration) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify validates a JWT token and returns the claims.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Remaining returns how long claims stay valid from now, never negative.
func (s *JWTService) Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	if d := claims.ExpiresAt.Sub(s.now()); d > 0 {
		return d
	}
	return 0
}
