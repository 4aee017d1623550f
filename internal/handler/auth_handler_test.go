package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/symbol-directory/internal/auth"
	"github.com/yourorg/symbol-directory/internal/config"
	"github.com/yourorg/symbol-directory/internal/middleware"
	"github.com/yourorg/symbol-directory/internal/model"
	"github.com/yourorg/symbol-directory/internal/repository"
	"github.com/yourorg/symbol-directory/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthRouter(t *testing.T) (*gin.Engine, redismock.ClientMock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock := redismock.NewClientMock()
	logger := zap.NewNop()
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:            "handler-test-secret",
			AccessTokenDuration:  30 * time.Minute,
			RefreshTokenDuration: 7 * 24 * time.Hour,
		},
	}
	authService := service.NewAuthService(repository.NewUserRepository(db, logger), cfg, logger)
	authHandler := NewAuthHandler(authService, logger)

	router := gin.New()
	router.POST("/token", authHandler.Token)
	router.POST("/refresh", authHandler.Refresh)

	protected := router.Group("")
	protected.Use(middleware.AuthMiddleware(authService, logger))
	protected.POST("/logout", authHandler.Logout)
	protected.GET("/users/me/", authHandler.Me)

	return router, mock
}

func storedUserJSON(t *testing.T, username, password string) string {
	t.Helper()
	hashed, err := auth.HashPassword(password)
	require.NoError(t, err)
	data, err := json.Marshal(model.UserRecord{Username: username, HashedPassword: hashed})
	require.NoError(t, err)
	return string(data)
}

func postForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestToken_IssuesPair(t *testing.T) {
	router, mock := newAuthRouter(t)
	mock.ExpectGet("user:admin").SetVal(storedUserJSON(t, "admin", "pa55word"))
	mock.Regexp().ExpectSet("refresh_token:admin", `.+`, 7*24*time.Hour).SetVal("OK")

	w := postForm(router, "/token", url.Values{"username": {"admin"}, "password": {"pa55word"}})
	require.Equal(t, http.StatusOK, w.Code)

	var response model.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "bearer", response.TokenType)
	require.NotEmpty(t, response.AccessToken)
	require.NotEmpty(t, response.RefreshToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestToken_GenericErrorOnBadCredentials(t *testing.T) {
	router, mock := newAuthRouter(t)

	// Unknown user and wrong password must be indistinguishable.
	mock.ExpectGet("user:nobody").RedisNil()
	w := postForm(router, "/token", url.Values{"username": {"nobody"}, "password": {"x"}})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	unknownBody := w.Body.String()

	mock.ExpectGet("user:admin").SetVal(storedUserJSON(t, "admin", "pa55word"))
	w = postForm(router, "/token", url.Values{"username": {"admin"}, "password": {"wrong"}})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, unknownBody, w.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestToken_MissingFields(t *testing.T) {
	router, mock := newAuthRouter(t)

	w := postForm(router, "/token", url.Values{"username": {"admin"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersMe(t *testing.T) {
	router, mock := newAuthRouter(t)

	// Obtain a real access token through the login flow.
	mock.ExpectGet("user:admin").SetVal(storedUserJSON(t, "admin", "pa55word"))
	mock.Regexp().ExpectSet("refresh_token:admin", `.+`, 7*24*time.Hour).SetVal("OK")
	w := postForm(router, "/token", url.Values{"username": {"admin"}, "password": {"pa55word"}})
	require.Equal(t, http.StatusOK, w.Code)

	var pair model.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))

	mock.ExpectExists("blacklist:" + pair.AccessToken).SetVal(0)
	mock.ExpectGet("user:admin").SetVal(storedUserJSON(t, "admin", "pa55word"))

	req := httptest.NewRequest(http.MethodGet, "/users/me/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"username":"admin"}`, w.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersMe_RequiresBearerToken(t *testing.T) {
	router, mock := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/users/me/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersMe_BackendFailureIsServerError(t *testing.T) {
	router, mock := newAuthRouter(t)

	mock.ExpectGet("user:admin").SetVal(storedUserJSON(t, "admin", "pa55word"))
	mock.Regexp().ExpectSet("refresh_token:admin", `.+`, 7*24*time.Hour).SetVal("OK")
	w := postForm(router, "/token", url.Values{"username": {"admin"}, "password": {"pa55word"}})
	require.Equal(t, http.StatusOK, w.Code)

	var pair model.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))

	// A failing blacklist lookup is a backend fault, not a credential
	// problem, and must surface as 500.
	mock.ExpectExists("blacklist:" + pair.AccessToken).SetErr(redis.TxFailedErr)

	req := httptest.NewRequest(http.MethodGet, "/users/me/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_InvalidToken(t *testing.T) {
	router, mock := newAuthRouter(t)

	body := strings.NewReader(`{"refresh_token":"not-a-real-token"}`)
	req := httptest.NewRequest(http.MethodPost, "/refresh", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogout_RevokesTokens(t *testing.T) {
	router, mock := newAuthRouter(t)

	mock.ExpectGet("user:admin").SetVal(storedUserJSON(t, "admin", "pa55word"))
	mock.Regexp().ExpectSet("refresh_token:admin", `.+`, 7*24*time.Hour).SetVal("OK")
	w := postForm(router, "/token", url.Values{"username": {"admin"}, "password": {"pa55word"}})
	require.Equal(t, http.StatusOK, w.Code)

	var pair model.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))

	mock.ExpectExists("blacklist:" + pair.AccessToken).SetVal(0)
	mock.ExpectGet("user:admin").SetVal(storedUserJSON(t, "admin", "pa55word"))
	mock.ExpectDel("refresh_token:admin").SetVal(1)
	mock.CustomMatch(func(expected, actual []interface{}) error {
		return nil
	}).ExpectSet("blacklist:"+pair.AccessToken, "1", 30*time.Minute).SetVal("OK")

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
