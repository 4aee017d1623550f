package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourorg/symbol-directory/internal/model"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	userKeyPrefix         = "user:"
	refreshTokenKeyPrefix = "refresh_token:"
	blacklistKeyPrefix    = "blacklist:"
)

// UserRepository stores accounts, per-user refresh tokens and the access-token
// blacklist in the shared key-value backend
type UserRepository struct {
	db     *redis.Client
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *redis.Client, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetUser retrieves an account by username. Returns nil without error if the
// account does not exist.
func (r *UserRepository) GetUser(ctx context.Context, username string) (*model.UserRecord, error) {
	data, err := r.db.Get(ctx, userKeyPrefix+username).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}

	var user model.UserRecord
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user %q: %w", username, err)
	}
	return &user, nil
}

// CreateUser stores an account under its username key
func (r *UserRepository) CreateUser(ctx context.Context, user *model.UserRecord) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user %q: %w", user.Username, err)
	}
	if err := r.db.Set(ctx, userKeyPrefix+user.Username, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store user %q: %w", user.Username, err)
	}
	return nil
}

// StoreRefreshToken persists the single active refresh token for a user,
// overwriting any prior one. The TTL matches the token's validity window.
func (r *UserRepository) StoreRefreshToken(ctx context.Context, username, token string, ttl time.Duration) error {
	if err := r.db.Set(ctx, refreshTokenKeyPrefix+username, token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store refresh token for %q: %w", username, err)
	}
	return nil
}

// GetRefreshToken returns the currently stored refresh token for a user, or
// an empty string if none is stored
func (r *UserRepository) GetRefreshToken(ctx context.Context, username string) (string, error) {
	token, err := r.db.Get(ctx, refreshTokenKeyPrefix+username).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get refresh token for %q: %w", username, err)
	}
	return token, nil
}

// DeleteRefreshToken removes the stored refresh token for a user
func (r *UserRepository) DeleteRefreshToken(ctx context.Context, username string) error {
	if err := r.db.Del(ctx, refreshTokenKeyPrefix+username).Err(); err != nil {
		return fmt.Errorf("failed to delete refresh token for %q: %w", username, err)
	}
	return nil
}

// BlacklistAccessToken marks an access token as revoked until ttl elapses.
// The entry self-expires exactly when the token would have.
func (r *UserRepository) BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if err := r.db.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist access token: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether an access token has been revoked
func (r *UserRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := r.db.Exists(ctx, blacklistKeyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}
