package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var corsAllowHeaders = strings.Join([]string{"Authorization", "Content-Type", AppSecretHeader, "X-Request-Id", "If-None-Match"}, ",")

// CORSMiddleware echoes allowed origins. An allow-list entry of "*" admits
// any origin without credentials.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	wildcard := false

	for _, origin := range allowedOrigins {
		if origin == "*" {
			wildcard = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(ctx *gin.Context) {
		if origin := ctx.GetHeader("Origin"); origin != "" {
			_, ok := allowed[origin]

			switch {
			case ok:
				ctx.Header("Access-Control-Allow-Origin", origin)
				ctx.Header("Access-Control-Allow-Credentials", "true")
				ctx.Header("Vary", "Origin")
			case wildcard:
				ctx.Header("Access-Control-Allow-Origin", "*")
			}

			if ok || wildcard {
				ctx.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				ctx.Header("Access-Control-Allow-Headers", corsAllowHeaders)
				ctx.Header("Access-Control-Expose-Headers", "ETag,X-Request-Id")
			}
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
