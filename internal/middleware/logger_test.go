package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_IncludesRequestFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	router := gin.New()
	router.Use(Logger(zap.New(core)))
	router.GET("/search_symbols/", func(c *gin.Context) {
		c.Set(ContextUsername, "admin")
		c.String(http.StatusOK, "[]")
	})

	req := httptest.NewRequest(http.MethodGet, "/search_symbols/?search_string=apple", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.EqualValues(t, http.StatusOK, fields["status"])
	require.Equal(t, "/search_symbols/", fields["path"])
	require.Equal(t, "/search_symbols/", fields["route"])
	require.Equal(t, "search_string=apple", fields["query"])
	require.Equal(t, "admin", fields["username"])
}

func TestLogger_OmitsUsernameOnAnonymousRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	router := gin.New()
	router.Use(Logger(zap.New(core)))
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.NotContains(t, fields, "username")
	require.NotContains(t, fields, "query")
}
