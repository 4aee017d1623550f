package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/yourorg/symbol-directory/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware
const (
	ContextUsername    = "username"
	ContextAccessToken = "accessToken"
)

// AuthMiddleware creates middleware for bearer-token authentication. The
// verified username and the raw token are stored on the request context for
// handlers that need them (logout needs the token itself to revoke it).
func AuthMiddleware(authService *service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Check if it's a Bearer token
		headerParts := strings.SplitN(authHeader, " ", 2)
		if len(headerParts) != 2 || headerParts[0] != "Bearer" {
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		// Validate the token. Only genuine auth failures collapse into the
		// generic 401; a backend failure during verification is a server
		// error and must not masquerade as bad credentials.
		tokenString := headerParts[1]
		username, err := authService.VerifyAccess(c.Request.Context(), tokenString)
		if isAuthFailure(err) {
			logger.Debug("token validation failed", zap.Error(err))
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			c.Abort()
			return
		}
		if err != nil {
			logger.Error("token verification failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set(ContextUsername, username)
		c.Set(ContextAccessToken, tokenString)
		c.Next()
	}
}

// isAuthFailure reports whether an error belongs to the auth failure taxonomy
// (as opposed to a backend failure during verification)
func isAuthFailure(err error) bool {
	return errors.Is(err, service.ErrInvalidToken) ||
		errors.Is(err, service.ErrTokenRevoked) ||
		errors.Is(err, service.ErrUnknownUser)
}
