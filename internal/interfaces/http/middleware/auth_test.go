package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solidwriter-api/pkg/utils"
)

const (
	testSecret = "test-secret"
	testIssuer = "solidwriter"
)

func newAuthEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(AuthConfig{
		Secret:    testSecret,
		Issuer:    testIssuer,
		SkipPaths: DefaultSkipPaths,
		Enabled:   true,
	}))
	r.GET("/v1/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetIdentityFromGin(c)+"|"+GetIdentity(c.Request.Context()))
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serve(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_ValidTokenInjectsNormalizedIdentity(t *testing.T) {
	token, err := utils.NewJWTManager(testSecret, testIssuer).IssueToken("Writer@Example.com", "W", time.Hour)
	require.NoError(t, err)

	w := serve(newAuthEngine(), "/v1/whoami", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "writer@example.com|writer@example.com", w.Body.String())
}

func TestAuth_Rejections(t *testing.T) {
	expired, err := utils.NewJWTManager(testSecret, testIssuer).IssueToken("a@example.com", "", -time.Minute)
	require.NoError(t, err)
	foreign, err := utils.NewJWTManager("other-secret", testIssuer).IssueToken("a@example.com", "", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   string
	}{
		{"missing", "", "2003"},
		{"bad scheme", "Basic abc", "2002"},
		{"expired", "Bearer " + expired, "2001"},
		{"wrong secret", "Bearer " + foreign, "2002"},
	}
	r := newAuthEngine()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, "/v1/whoami", tc.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"error_code":"`+tc.code+`"`)
		})
	}
}

func TestAuth_SkipPathsAndDisabled(t *testing.T) {
	w := serve(newAuthEngine(), "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	r := gin.New()
	r.Use(Auth(AuthConfig{Enabled: false}))
	r.GET("/v1/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w = serve(r, "/v1/x", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

type fakeLimiter struct {
	allowed map[string]int
	limit   int
	err     error
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.limit = limit
	f.allowed[key]++
	return f.allowed[key] <= limit, nil
}

func newLimitedEngine(limiter RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("identity", c.GetHeader("X-Identity"))
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{Enabled: true, Limit: 2, Window: time.Minute}, limiter))
	r.GET("/v1/generate", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit_PerIdentity(t *testing.T) {
	limiter := &fakeLimiter{allowed: map[string]int{}}
	r := newLimitedEngine(limiter)

	call := func(identity string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/generate", nil)
		req.Header.Set("X-Identity", identity)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("a@example.com"))
	assert.Equal(t, http.StatusOK, call("a@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, call("a@example.com"))
	assert.Equal(t, http.StatusOK, call("b@example.com"))
	assert.Equal(t, 2, limiter.limit)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := newLimitedEngine(&fakeLimiter{err: errors.New("redis down")})

	req := httptest.NewRequest(http.MethodGet, "/v1/generate", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
