package handler

import (
	"errors"
	"net/http"

	"github.com/yourorg/symbol-directory/internal/middleware"
	"github.com/yourorg/symbol-directory/internal/model"
	"github.com/yourorg/symbol-directory/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Token handles user login
// POST /token
func (h *AuthHandler) Token(c *gin.Context) {
	var request model.LoginRequest
	if err := c.ShouldBind(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("login attempt", zap.String("username", request.Username))

	user, err := h.authService.Authenticate(c.Request.Context(), request.Username, request.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect username or password"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response, err := h.authService.IssueTokenPair(c.Request.Context(), user.Username)
	if err != nil {
		h.logger.Error("failed to issue token pair", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// Logout handles user logout, revoking both the refresh and access tokens
// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)
	token := c.GetString(middleware.ContextAccessToken)

	if err := h.authService.Logout(c.Request.Context(), username, token); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Refresh handles token pair rotation
// POST /refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var request model.RefreshRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.authService.Refresh(c.Request.Context(), request.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			h.logger.Debug("token refresh rejected", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
			return
		}
		h.logger.Error("token refresh failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// Me returns the current authenticated user
// GET /users/me/
func (h *AuthHandler) Me(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)
	c.JSON(http.StatusOK, model.User{Username: username})
}
