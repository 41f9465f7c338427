package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// multipartOverhead leaves room for boundaries and part headers around an
// upload that is exactly at the limit.
const multipartOverhead = 64 << 10

// BodyLimit caps request bodies at max bytes plus multipart overhead.
// Handlers see *http.MaxBytesError once the cap is crossed.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && max > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max+multipartOverhead)
		}
		c.Next()
	}
}
