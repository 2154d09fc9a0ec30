package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("redis down")
}
func (failingLimiter) Close() error { return nil }

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(l cache.RateLimiter, tenant string) *gin.Engine {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			if tenant != "" {
				c.Set(TenantIDKey, tenant)
			}
			c.Next()
		})
		router.Use(RateLimit(l))
		router.GET("/bills", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
		return router
	}
	do := func(r *gin.Engine) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bills", nil))
		return w
	}

	t.Run("limits per tenant", func(t *testing.T) {
		limiter := cache.NewMemoryRateLimiter(1, 2, time.Minute)
		defer limiter.Close()
		tenantA := newRouter(limiter, "tenant-a")
		tenantB := newRouter(limiter, "tenant-b")

		assert.Equal(t, http.StatusOK, do(tenantA).Code)
		assert.Equal(t, http.StatusOK, do(tenantA).Code)

		w := do(tenantA)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "RATE_LIMITED")

		assert.Equal(t, http.StatusOK, do(tenantB).Code)
	})

	t.Run("falls back to client ip", func(t *testing.T) {
		limiter := cache.NewMemoryRateLimiter(1, 1, time.Minute)
		defer limiter.Close()
		r := newRouter(limiter, "")

		assert.Equal(t, http.StatusOK, do(r).Code)
		assert.Equal(t, http.StatusTooManyRequests, do(r).Code)
	})

	t.Run("limiter errors fail open", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(newRouter(failingLimiter{}, "t")).Code)
	})
}
