package webapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vetrina-server-go/internal/domain/auth"
	"vetrina-server-go/internal/domain/ratelimit"
	"vetrina-server-go/internal/platform/logging"
)

// BearerToken extracts the token from the Authorization header, empty when
// absent or malformed.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth rejects requests whose bearer token the gate does not accept.
func RequireAuth(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !gate.Authorize(c.Request.Context(), BearerToken(c)) {
			RespondError(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimit counts the request against its endpoint class before the handler
// runs.
func RateLimit(limiter *ratelimit.Limiter, endpointClass string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Admit(c.Request.Context(), c.ClientIP(), endpointClass) {
			RespondError(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request with latency and status.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
