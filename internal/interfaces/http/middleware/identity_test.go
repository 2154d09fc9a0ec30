package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "test-secret-at-least-32-bytes-long!!", Issuer: "backoffice"})
	tenantID, userID := uuid.New(), uuid.New()

	router := gin.New()
	router.Use(Identity(IdentityConfig{Verifier: jwtSvc, SkipPaths: []string{"/health"}}))
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/me", func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenant_id": id.TenantID.String(), "user_id": c.GetString(UserIDKey)})
	})

	valid, err := jwtSvc.Issue(tenantID, userID, "alice", time.Hour)
	require.NoError(t, err)
	expired, err := jwtSvc.Issue(tenantID, userID, "alice", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"skip path needs no token", "/health", "", http.StatusOK, "ok"},
		{"missing header", "/me", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "/me", "Basic " + valid, http.StatusUnauthorized, "bearer token"},
		{"garbage token", "/me", "Bearer not-a-jwt", http.StatusUnauthorized, "Invalid token"},
		{"expired token", "/me", "Bearer " + expired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"valid token", "/me", "Bearer " + valid, http.StatusOK, tenantID.String()},
		{"scheme is case insensitive", "/me", "bearer " + valid, http.StatusOK, userID.String()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
		})
	}
}

func TestGetIdentity_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetIdentity(c)
	assert.False(t, ok)
}
