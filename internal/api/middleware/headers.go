package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders sets baseline response headers on every route. The
// per-render Content-Security-Policy is set by the surface handler, not
// here, because it carries the render's nonce.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		c.Next()
	}
}
