package guard

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Gin adapts mw for a gin middleware chain. When mw does not call the next
// handler the gin chain is aborted.
func Gin(mw Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})
		mw(next).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

// GinNonEmptyBody is NonEmptyBody as a gin middleware.
func GinNonEmptyBody(opts ...Option) gin.HandlerFunc {
	return Gin(NonEmptyBody(opts...))
}
