package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"instagram-feed/infrastructure/utils"
	"instagram-feed/interfaces/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", middleware.Auth(secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	return r
}

func TestAuth(t *testing.T) {
	valid, err := utils.GenerateAdminToken("operator", "s3cret", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateAdminToken("operator", "s3cret", -time.Hour)
	require.NoError(t, err)
	otherKey, err := utils.GenerateAdminToken("operator", "other", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		secret   string
		header   string
		wantCode int
		wantBody string
	}{
		{"valid token", "s3cret", "Bearer " + valid, http.StatusOK, "operator"},
		{"missing header", "s3cret", "", http.StatusUnauthorized, `"responseMessage":"Unauthorized"`},
		{"wrong scheme", "s3cret", "Basic abc", http.StatusUnauthorized, `"responseCode":"401"`},
		{"malformed", "s3cret", "Bearer not-a-jwt", http.StatusUnauthorized, "That's not even a token"},
		{"expired", "s3cret", "Bearer " + expired, http.StatusUnauthorized, "Timing is everything"},
		{"wrong key", "s3cret", "Bearer " + otherKey, http.StatusUnauthorized, `"responseCode":"401"`},
		{"no secret configured", "", "Bearer " + valid, http.StatusUnauthorized, `"responseCode":"401"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			newRouter(tt.secret).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
