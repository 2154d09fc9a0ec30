// Package middleware provides the HTTP middleware of the back-office API.
package middleware

import (
	"errors"
	"strings"

	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys set by the identity middleware
const (
	IdentityKey = "identity"
	TenantIDKey = "tenant_id"
	UserIDKey   = "user_id"
)

// TokenVerifier verifies a bearer token and returns the caller identity
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// IdentityConfig configures the identity middleware
type IdentityConfig struct {
	Verifier  TokenVerifier
	SkipPaths []string
}

// Identity authenticates the bearer token and stores the caller's tenant and
// user on the gin context. The request logger is enriched with both ids.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			abortJSON(c, 401, "UNAUTHORIZED", "Authorization header is required")
			return
		}
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortJSON(c, 401, "UNAUTHORIZED", "Authorization header must be a bearer token")
			return
		}

		id, err := cfg.Verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			code, msg := "UNAUTHORIZED", "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				code, msg = "TOKEN_EXPIRED", "Token has expired"
			}
			logger.FromContext(c.Request.Context()).Debug("Token rejected", zap.Error(err))
			abortJSON(c, 401, code, msg)
			return
		}

		c.Set(IdentityKey, id)
		c.Set(TenantIDKey, id.TenantID.String())
		c.Set(UserIDKey, id.UserID.String())

		ctx, _ := logger.WithFields(c.Request.Context(),
			zap.String("tenant_id", id.TenantID.String()),
			zap.String("user_id", id.UserID.String()),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetIdentity returns the authenticated caller
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok && id.TenantID != uuid.Nil
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
