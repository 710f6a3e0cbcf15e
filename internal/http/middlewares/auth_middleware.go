package middlewares

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/certhub/internal/actorctx"
	"github.com/geocoder89/certhub/internal/auth"
)

const MsgNoToken = "No authentication token supplied in body or query."

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth accepts the token from the Authorization header, a JSON body
// field named token, or the token query parameter, in that order.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw == "" {
			abortError(c, http.StatusUnauthorized, "unauthorized", MsgNoToken)
			return
		}

		claims, err := m.jwt.VerifyToken(raw)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		p := actorctx.Principal{
			ID:        claims.UserID,
			Email:     claims.Email,
			Firstname: claims.Firstname,
			Lastname:  claims.Lastname,
		}

		c.Set(CtxUserID, p.ID)
		c.Request = c.Request.WithContext(actorctx.WithPrincipal(c.Request.Context(), p))

		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); t != "" {
			return t
		}
	}

	if t := tokenFromBody(c); t != "" {
		return t
	}

	return strings.TrimSpace(c.Query("token"))
}

// tokenFromBody peeks at a JSON body and puts it back for the handler.
func tokenFromBody(c *gin.Context) string {
	req := c.Request
	if req.Body == nil || req.Body == http.NoBody {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(req.Header.Get("Content-Type")), "application/json") {
		return ""
	}

	body, err := io.ReadAll(req.Body)
	req.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}

	var payload struct {
		Token string `json:"token"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}

	return strings.TrimSpace(payload.Token)
}

// Helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
