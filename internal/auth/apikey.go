package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware gates ingestion behind a static shared-secret allowlist.
// Keys are compared exactly; there is no identity behind a key, so nothing
// is stored on the request context. This is a coarse trust boundary, not
// per-tenant auth.
func APIKeyMiddleware(keys map[string]struct{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if _, ok := keys[apiKey]; !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
