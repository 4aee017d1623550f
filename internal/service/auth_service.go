package service

import (
	"context"
	"errors"
	"time"

	"github.com/yourorg/symbol-directory/internal/auth"
	"github.com/yourorg/symbol-directory/internal/config"
	"github.com/yourorg/symbol-directory/internal/model"
	"github.com/yourorg/symbol-directory/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// AdminUsername is the reserved account created at bootstrap
const AdminUsername = "admin"

// Auth failure taxonomy. Handlers collapse all of these into a generic 401 so
// a caller can never tell which check failed.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUnknownUser        = errors.New("unknown user")
)

// AuthService manages the session token lifecycle: issuance, rotation,
// revocation and verification
type AuthService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
	logger   *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
		logger:   logger,
	}
}

// Authenticate verifies a username/password pair against the stored account.
// Read-only; the same error is returned for an unknown user and a bad
// password.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.UserRecord, error) {
	user, err := s.userRepo.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logger.Warn("authentication failed: user not found", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(password, user.HashedPassword)
	if err != nil || !ok {
		s.logger.Warn("authentication failed: invalid password", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("user authenticated", zap.String("username", username))
	return user, nil
}

// IssueTokenPair mints an access/refresh token pair for a user and persists
// the refresh token under the per-user key, silently superseding any prior
// one. A superseded refresh token stays cryptographically valid but will no
// longer match the stored copy.
func (s *AuthService) IssueTokenPair(ctx context.Context, username string) (*model.TokenResponse, error) {
	accessToken, err := s.signToken(username, "access", s.cfg.Auth.AccessTokenDuration)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.signToken(username, "refresh", s.cfg.Auth.RefreshTokenDuration)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.StoreRefreshToken(ctx, username, refreshToken, s.cfg.Auth.RefreshTokenDuration); err != nil {
		return nil, err
	}

	return &model.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

// Refresh rotates a token pair. The presented token must verify, carry the
// refresh tag and byte-equal the stored copy for its user; the stored-copy
// comparison is what enforces the single-active-refresh-token policy and
// detects reuse of a superseded token.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*model.TokenResponse, error) {
	claims, err := s.parseToken(presented)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if tokenType, _ := claims["type"].(string); tokenType != "refresh" {
		return nil, ErrInvalidToken
	}

	username, _ := claims["sub"].(string)
	if username == "" {
		return nil, ErrInvalidToken
	}

	stored, err := s.userRepo.GetRefreshToken(ctx, username)
	if err != nil {
		return nil, err
	}
	if stored == "" || stored != presented {
		s.logger.Warn("refresh token mismatch", zap.String("username", username))
		return nil, ErrInvalidToken
	}

	return s.IssueTokenPair(ctx, username)
}

// VerifyAccess validates a bearer access token and returns its subject. The
// blacklist is consulted before signature verification so a revoked token is
// rejected even while otherwise valid.
func (s *AuthService) VerifyAccess(ctx context.Context, token string) (string, error) {
	revoked, err := s.userRepo.IsBlacklisted(ctx, token)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrTokenRevoked
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return "", ErrInvalidToken
	}

	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return "", ErrInvalidToken
	}

	username, _ := claims["sub"].(string)
	if username == "" {
		return "", ErrInvalidToken
	}

	user, err := s.userRepo.GetUser(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		s.logger.Warn("access token for unknown user", zap.String("username", username))
		return "", ErrUnknownUser
	}

	return username, nil
}

// Logout revokes both of a user's tokens: the stored refresh token is deleted
// and the access token is blacklisted for its remaining validity. An already
// expired access token needs no blacklist entry.
func (s *AuthService) Logout(ctx context.Context, username, accessToken string) error {
	if err := s.userRepo.DeleteRefreshToken(ctx, username); err != nil {
		return err
	}

	claims, err := s.parseToken(accessToken)
	if err != nil {
		// Token no longer verifies, so it is already unusable.
		return nil
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil
	}

	ttl := time.Until(time.Unix(int64(exp), 0))
	if ttl <= 0 {
		return nil
	}

	if err := s.userRepo.BlacklistAccessToken(ctx, accessToken, ttl); err != nil {
		return err
	}

	s.logger.Info("user logged out", zap.String("username", username))
	return nil
}

// EnsureAdminUser creates the reserved admin account at bootstrap if it does
// not exist. A missing admin password is a configuration error, not a
// request-time error.
func (s *AuthService) EnsureAdminUser(ctx context.Context, password string) error {
	user, err := s.userRepo.GetUser(ctx, AdminUsername)
	if err != nil {
		return err
	}
	if user != nil {
		return nil
	}

	if password == "" {
		return errors.New("admin password not configured")
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	if err := s.userRepo.CreateUser(ctx, &model.UserRecord{
		Username:       AdminUsername,
		HashedPassword: hashed,
	}); err != nil {
		return err
	}

	s.logger.Info("default admin user created")
	return nil
}

func (s *AuthService) signToken(username, tokenType string, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  username,
		"exp":  now.Add(lifetime).Unix(),
		"iat":  now.Unix(),
		"type": tokenType,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Auth.JWTSecret))
	if err != nil {
		s.logger.Error("failed to sign token", zap.String("type", tokenType), zap.Error(err))
		return "", err
	}
	return token, nil
}

func (s *AuthService) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.Auth.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
