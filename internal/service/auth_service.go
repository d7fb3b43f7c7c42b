package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/internal/dto"
	"github.com/basepark/smartpark/internal/repository"
	"github.com/basepark/smartpark/pkg/logger"
	"github.com/basepark/smartpark/pkg/telemetry"
)

// AuthService authenticates admin accounts and issues access tokens
type AuthService interface {
	// Login verifies credentials and returns a signed token
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)

	// ValidateToken parses and verifies a token, returning its claims
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims carries the verified identity from a token
type TokenClaims struct {
	UserID   int64
	Username string
	Role     string
}

// AuthConfig contains configuration for the auth service
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// authService implements AuthService
type authService struct {
	userRepo repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
	log      *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repository.UserRepository, cfg *AuthConfig) (AuthService, error) {
	if cfg == nil || cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{
		userRepo: userRepo,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: ttl,
		log:      logger.Get(),
	}, nil
}

// Login verifies credentials and returns a signed token
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	span.SetAttributes(attribute.String("username", req.Username))

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.WarnContext(ctx, "failed to stamp last login",
			zap.String("username", user.Username), zap.Error(err))
	}

	span.SetStatus(codes.Ok, "")
	return &dto.LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		Username:  user.Username,
		Role:      user.Role,
	}, nil
}

// ValidateToken parses and verifies a token
func (s *authService) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}

	result := &TokenClaims{}
	if sub, ok := claims["sub"].(float64); ok {
		result.UserID = int64(sub)
	}
	if username, ok := claims["username"].(string); ok {
		result.Username = username
	}
	if role, ok := claims["role"].(string); ok {
		result.Role = role
	}
	if result.Username == "" {
		return nil, domain.ErrTokenInvalid
	}

	return result, nil
}
