package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader is the request header carrying the client's key
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// Idempotency claims the Idempotency-Key of a request before the handler runs.
// A key seen before yields 409 DUPLICATE_REQUEST. When the handler does not
// succeed the key is released so the client can retry. Requests without the
// header pass through.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abortJSON(c, http.StatusBadRequest, "INVALID_INPUT", "Idempotency-Key is too long")
			return
		}

		storeKey := c.GetString(TenantIDKey) + ":" + c.Request.Method + ":" + c.FullPath() + ":" + c.Param("id") + ":" + key
		log := logger.FromContext(c.Request.Context())

		claimed, err := store.MarkProcessed(c.Request.Context(), storeKey, ttl)
		if err != nil {
			log.Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			abortJSON(c, http.StatusConflict, "DUPLICATE_REQUEST", "A request with this Idempotency-Key was already processed")
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusMultipleChoices {
			// the request context may already be cancelled
			ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
			defer cancel()
			if err := store.Release(ctx, storeKey); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}
}
