package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	AppSecretHeader = "APP_SECRET"
	MsgBadAppSecret = "Incorrect pre-shared application secret received."
)

// RequireAppSecret rejects requests whose APP_SECRET header does not match.
// An empty secret disables the check.
func RequireAppSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		got := c.GetHeader(AppSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			abortError(c, http.StatusForbidden, "forbidden", MsgBadAppSecret)
			return
		}

		c.Next()
	}
}
