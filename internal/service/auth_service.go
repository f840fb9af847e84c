package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/couponhq/coupon-management/internal/model"
)

// AuthRepositoryInterface defines the user lookups needed by AuthService.
type AuthRepositoryInterface interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// AuthService verifies credentials, issues bearer tokens and resolves them
// back to users (the identity directory for every authenticated request).
type AuthService struct {
	users     AuthRepositoryInterface
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuthService creates a new AuthService with the given repository and
// token parameters.
func NewAuthService(users AuthRepositoryInterface, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 30 * time.Minute
	}
	return &AuthService{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Login verifies a username/password pair and issues a signed token.
// Returns ErrInvalidCredentials when the pair does not verify; the message
// never distinguishes an unknown user from a wrong password.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	if username == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

// Resolve maps a bearer token back to its user. The directory is re-read on
// every call so role changes take effect without waiting for token expiry.
// Any decode, signature or lookup failure returns ErrInvalidCredentials.
func (s *AuthService) Resolve(ctx context.Context, tokenString string) (*model.User, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidCredentials
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) issueToken(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.Username,
		"role": user.Role.String(),
		"uid":  user.ID,
		"exp":  time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
