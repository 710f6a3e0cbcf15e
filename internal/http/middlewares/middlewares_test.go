package middlewares

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/certhub/internal/actorctx"
	"github.com/geocoder89/certhub/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct{}

func (fakeVerifier) VerifyToken(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, errors.New("token signature is invalid")
	}
	return &auth.Claims{UserID: "u1", Email: "a@example.com", Firstname: "Ada", Lastname: "L"}, nil
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.Use(NewAuthMiddleware(fakeVerifier{}).RequireAuth())

	handler := func(c *gin.Context) {
		p, ok := actorctx.PrincipalFrom(c.Request.Context())
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		body, _ := io.ReadAll(c.Request.Body)
		c.JSON(http.StatusOK, gin.H{"id": p.ID, "body": string(body)})
	}
	r.GET("/me", handler)
	r.POST("/me", handler)
	return r
}

func TestRequireAuth_TokenSources(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		target      string
		body        string
		header      string
		wantStatus  int
		wantMessage string
	}{
		{name: "bearer header", method: http.MethodGet, target: "/me", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "query", method: http.MethodGet, target: "/me?token=good", wantStatus: http.StatusOK},
		{name: "json body", method: http.MethodPost, target: "/me", body: `{"token":"good","x":1}`, wantStatus: http.StatusOK},
		{name: "missing", method: http.MethodGet, target: "/me", wantStatus: http.StatusUnauthorized, wantMessage: MsgNoToken},
		{name: "invalid", method: http.MethodGet, target: "/me?token=bad", wantStatus: http.StatusUnauthorized, wantMessage: "token signature is invalid"},
	}

	r := authRouter()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			if tt.wantMessage != "" {
				var resp errorBody
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "unauthorized", resp.Error.Code)
				assert.Equal(t, tt.wantMessage, resp.Error.Message)
			}
		})
	}
}

func TestRequireAuth_BodyIsRestoredForHandler(t *testing.T) {
	r := authRouter()

	body := `{"token":"good","name":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/me", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Body string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, body, resp.Body)
}

func TestRequireAppSecret(t *testing.T) {
	r := gin.New()
	r.Use(RequireAppSecret("s3cret"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), MsgBadAppSecret)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(AppSecretHeader, "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAppSecret_DisabledWhenEmpty(t *testing.T) {
	r := gin.New()
	r.Use(RequireAppSecret(""))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name  string
		body  string
		ctype string
		want  int
	}{
		{"json", `{}`, "application/json; charset=utf-8", http.StatusNoContent},
		{"form", `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"empty body", ``, "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			if tt.ctype != "" {
				req.Header.Set("Content-Type", tt.ctype)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	r := gin.New()
	r.POST("/login", rl.Middleware(KeyByIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		return w
	}

	assert.Equal(t, http.StatusOK, hit().Code)
	assert.Equal(t, http.StatusOK, hit().Code)

	w := hit()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	clock = clock.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, hit().Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), AppSecretHeader)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
