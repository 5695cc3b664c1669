package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/grammar-annotation-backend/internal/platform/envutil"
)

// AttachRequestContext bounds every request with HTTP_REQUEST_TIMEOUT_SECONDS
// (default 30s) so store calls below the handler inherit a deadline.
func AttachRequestContext() gin.HandlerFunc {
	timeout := envutil.Seconds("HTTP_REQUEST_TIMEOUT_SECONDS", 30*time.Second)
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
